package server

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/softwareInkhub/auth-brmh/verification"
)

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password"`
}

type registerResponse struct {
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	EmailState string         `json:"emailState,omitempty"`
	PhoneState string         `json:"phoneState,omitempty"`
	Attempts   map[string]int `json:"attempts,omitempty"`
}

var errNoRegistration = errors.New("no registration in progress")

// RegisterHandler starts a registration attempt: it builds the
// verification gate from the captured form and immediately requests a
// code on every entered channel.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := readJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "invalid request body"})
			return
		}

		gate, err := verification.New(s.gateway, s.ephemeral, verification.Form{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
			Password:  req.Password,
		}, verification.WithClassifier(s.classifier))
		if err != nil {
			writeError(w, err)
			return
		}

		for _, channel := range []verification.Channel{verification.ChannelEmail, verification.ChannelPhone} {
			if gate.State(channel) != verification.StateUnverified {
				continue
			}
			if err := gate.RequestCode(r.Context(), channel); err != nil &&
				!errors.Is(err, verification.ErrNoIdentifier) {
				writeError(w, err)
				return
			}
		}

		s.gateLock.Lock()
		s.gate = gate
		s.gateLock.Unlock()

		s.writeGateState(w, http.StatusOK, gate)
	}
}

// VerifyCodeHandler submits a one-time code for the channel.
func (s *Server) VerifyCodeHandler(channel verification.Channel) http.HandlerFunc {
	type request struct {
		Code string `json:"code"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := readJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "invalid request body"})
			return
		}
		gate, err := s.currentGate()
		if err != nil {
			writeError(w, err)
			return
		}
		if err := gate.VerifyCode(r.Context(), channel, req.Code); err != nil {
			writeError(w, err)
			return
		}
		s.writeGateState(w, http.StatusOK, gate)
	}
}

// ResendCodeHandler re-runs the request-code path for the channel.
func (s *Server) ResendCodeHandler(channel verification.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gate, err := s.currentGate()
		if err != nil {
			writeError(w, err)
			return
		}
		if err := gate.RequestCode(r.Context(), channel); err != nil {
			writeError(w, err)
			return
		}
		s.writeGateState(w, http.StatusOK, gate)
	}
}

// RegisterCompleteHandler finishes registration. The shell account is the
// final account; success just clears bookkeeping and points the UI at the
// post-registration destination.
func (s *Server) RegisterCompleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gate, err := s.currentGate()
		if err != nil {
			writeError(w, err)
			return
		}
		dest, err := gate.Complete()
		if err != nil {
			writeError(w, err)
			return
		}

		s.gateLock.Lock()
		s.gate = nil
		s.gateLock.Unlock()

		writeJSON(w, http.StatusOK, apiResponse{Success: true, RedirectURL: dest})
	}
}

func (s *Server) currentGate() (*verification.Gate, error) {
	s.gateLock.Lock()
	defer s.gateLock.Unlock()
	if s.gate == nil {
		return nil, errNoRegistration
	}
	return s.gate, nil
}

func (s *Server) writeGateState(w http.ResponseWriter, status int, gate *verification.Gate) {
	writeJSON(w, status, registerResponse{
		Success:    true,
		EmailState: string(gate.State(verification.ChannelEmail)),
		PhoneState: string(gate.State(verification.ChannelPhone)),
		Attempts: map[string]int{
			string(verification.ChannelEmail): gate.Attempts(verification.ChannelEmail),
			string(verification.ChannelPhone): gate.Attempts(verification.ChannelPhone),
		},
	})
}
