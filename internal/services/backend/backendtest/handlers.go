package backendtest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/tracking"
	"github.com/shopspring/decimal"
)

func contextWithUser(r *http.Request, userID string) context.Context {
	return context.WithValue(r.Context(), ctxKey{}, userID)
}

func userFrom(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name       string          `json:"nombre"`
		Email      string          `json:"email"`
		Password   string          `json:"password"`
		HourlyRate decimal.Decimal `json:"valorHora"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "Datos incompletos")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.users {
		if strings.EqualFold(acc.user.Email, body.Email) {
			writeError(w, http.StatusBadRequest, "El email ya está registrado")
			return
		}
	}
	u := models.User{
		ID:         uuid.NewString(),
		Name:       body.Name,
		Email:      body.Email,
		HourlyRate: body.HourlyRate,
		Currency:   models.DefaultCurrency.Label(),
	}
	s.users[u.ID] = &account{user: u, password: body.Password}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Usuario registrado", "user": u})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Datos incompletos")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, acc := range s.users {
		if strings.EqualFold(acc.user.Email, body.Email) && acc.password == body.Password {
			token, _, err := s.mint(id)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: acc.user})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "Credenciales inválidas")
}

// accountByEmail must be called with s.mu held.
func (s *Server) accountByEmail(email string) (*account, bool) {
	for _, acc := range s.users {
		if strings.EqualFold(acc.user.Email, email) {
			return acc, true
		}
	}
	return nil, false
}

func (s *Server) recoverPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email  string `json:"email"`
		SendTo string `json:"destino"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" || body.SendTo == "" {
		writeError(w, http.StatusBadRequest, "Datos incompletos")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accountByEmail(body.Email); !ok {
		writeError(w, http.StatusNotFound, "Usuario no encontrado")
		return
	}
	s.codes[strings.ToLower(body.Email)] = recovery{
		code:    fmt.Sprintf("%06d", rand.IntN(1_000_000)),
		sentTo:  body.SendTo,
		expires: s.now().Add(RecoveryTTL),
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Código enviado"})
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" || body.Code == "" || body.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "Datos incompletos")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(body.Email)
	rc, ok := s.codes[key]
	if !ok || rc.code != body.Code || s.now().After(rc.expires) {
		writeError(w, http.StatusBadRequest, "Código inválido o expirado")
		return
	}
	acc, ok := s.accountByEmail(body.Email)
	if !ok {
		writeError(w, http.StatusNotFound, "Usuario no encontrado")
		return
	}
	acc.password = body.NewPassword
	delete(s.codes, key)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Contraseña actualizada"})
}

// ownAccount resolves {id} and rejects access to other users.
func (s *Server) ownAccount(w http.ResponseWriter, r *http.Request) (*account, bool) {
	id := mux.Vars(r)["id"]
	if id != userFrom(r) {
		writeError(w, http.StatusForbidden, "No autorizado")
		return nil, false
	}
	acc, ok := s.users[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Usuario no encontrado")
		return nil, false
	}
	return acc, true
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.ownAccount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, acc.user)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		HourlyRate *decimal.Decimal `json:"valorHora"`
		Name       string           `json:"nombre"`
		Email      string           `json:"email"`
		Photo      string           `json:"foto"`
		Password   string           `json:"password"`
		Currency   string           `json:"moneda"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Datos inválidos")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.ownAccount(w, r)
	if !ok {
		return
	}

	resp := models.UpdateProfileResponse{}
	if body.Name != "" {
		acc.user.Name = body.Name
	}
	if body.Photo != "" {
		acc.user.Photo = body.Photo
	}
	if body.Currency != "" {
		acc.user.Currency = body.Currency
	}
	if body.HourlyRate != nil {
		acc.user.HourlyRate = *body.HourlyRate
	}
	if body.Email != "" && !strings.EqualFold(body.Email, acc.user.Email) {
		acc.user.Email = body.Email
		resp.EmailChanged = true
		token, _, err := s.mint(acc.user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Token = token
	}
	if body.Password != "" && body.Password != acc.password {
		acc.password = body.Password
		resp.PasswordChanged = true
	}
	resp.User = acc.user
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.ownAccount(w, r)
	if !ok {
		return
	}
	delete(s.users, acc.user.ID)
	delete(s.records, acc.user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Usuario eliminado"})
}

func (s *Server) clockIn(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.records[userID] {
		if f.Open() {
			writeError(w, http.StatusBadRequest, "Ya tienes un fichaje en curso")
			return
		}
	}
	now := s.now()
	f := models.Fichaje{
		ID:    uuid.NewString(),
		User:  models.Ref(userID),
		Date:  now.UTC().Format("2006-01-02"),
		Start: models.NewTimestamp(now),
	}
	s.records[userID] = append(s.records[userID], f)
	writeJSON(w, http.StatusCreated, models.ClockResponse{Message: "Entrada registrada", Record: f})
}

// find returns the index of a record of the authenticated user.
func (s *Server) find(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	userID := userFrom(r)
	id := mux.Vars(r)["id"]
	for i, f := range s.records[userID] {
		if f.ID == id {
			return userID, i, true
		}
	}
	writeError(w, http.StatusNotFound, "Fichaje no encontrado")
	return userID, -1, false
}

func (s *Server) clockOut(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, i, ok := s.find(w, r)
	if !ok {
		return
	}
	f := &s.records[userID][i]
	if !f.Open() {
		writeError(w, http.StatusBadRequest, "El fichaje ya está cerrado")
		return
	}
	closeRecord(f, s.now(), s.users[userID].user.Rate())
	writeJSON(w, http.StatusOK, models.ClockResponse{Message: "Salida registrada", Record: *f})
}

func (s *Server) overtime(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Extra bool `json:"extra"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Datos inválidos")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, i, ok := s.find(w, r)
	if !ok {
		return
	}
	s.records[userID][i].Overtime = body.Extra
	writeJSON(w, http.StatusOK, models.ClockResponse{Message: "Fichaje actualizado", Record: s.records[userID][i]})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.records[userID]
	if list == nil {
		list = []models.Fichaje{}
	}
	agg := tracking.NewAggregator(nil, s.users[userID].user.Rate())
	summary := agg.Summarize(models.Records(list), s.now())
	writeJSON(w, http.StatusOK, models.HistoryResponse{
		Records: list,
		Totals:  models.HistoryTotals{Week: summary.Week.Hours, Month: summary.Month.Hours},
	})
}

func (s *Server) current(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.records[userID] {
		if f.Open() {
			writeJSON(w, http.StatusOK, models.CurrentResponse{Current: &f})
			return
		}
	}
	writeJSON(w, http.StatusOK, models.CurrentResponse{})
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, i, ok := s.find(w, r)
	if !ok {
		return
	}
	s.records[userID] = append(s.records[userID][:i], s.records[userID][i+1:]...)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Fichaje eliminado"})
}

func (s *Server) deleteHistory(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Historial eliminado"})
}
