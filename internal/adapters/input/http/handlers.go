package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"telldus-bridge/internal/domain/model"
	"time"

	"github.com/go-chi/chi/v5"
)

// defaultHistoryWindow applies when a history request omits from.
const defaultHistoryWindow = 24 * time.Hour

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathID(r *http.Request) model.ID {
	return model.NewID(chi.URLParam(r, "id"))
}

// passThrough serves a façade call that returns the remote body as-is.
func (s *Server) passThrough(call func(context.Context) (json.RawMessage, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := call(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeRaw(w, raw)
	}
}

// deviceAction serves a command that only needs the id from the path.
func (s *Server) deviceAction(call func(context.Context, model.ID) (json.RawMessage, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := call(r.Context(), pathID(r))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeRaw(w, raw)
	}
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// Devices

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.DeviceList{Device: s.telldus.ListDevices(r.Context())})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := s.telldus.GetDeviceInfo(r.Context(), pathID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

func (s *Server) handleDim(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.Atoi(r.URL.Query().Get("level"))
	if err != nil {
		writeBadRequest(w, "level must be an integer between 0 and 255")
		return
	}
	raw, err := s.telldus.DimDevice(r.Context(), pathID(r), level)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeRaw(w, raw)
}

type commandRequest struct {
	Method string `json:"method"`
	Value  string `json:"value"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if !decodeBody(w, r, &req) {
		return
	}
	raw, err := s.telldus.CommandDevice(r.Context(), pathID(r), req.Method, req.Value)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeRaw(w, raw)
}

type nameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleDeviceName(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	raw, err := s.telldus.SetDeviceName(r.Context(), pathID(r), req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeRaw(w, raw)
}

func (s *Server) handleDeviceModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	raw, err := s.telldus.SetDeviceModel(r.Context(), pathID(r), req.Model)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeRaw(w, raw)
}

func (s *Server) handleDeviceProtocol(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Protocol string `json:"protocol"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	raw, err := s.telldus.SetDeviceProtocol(r.Context(), pathID(r), req.Protocol)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeRaw(w, raw)
}

type parameterRequest struct {
	Parameter string `json:"parameter"`
	Value     string `json:"value"`
}

func (s *Server) handleDeviceParameter(w http.ResponseWriter, r *http.Request) {
	var req parameterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Parameter == "" {
		writeBadRequest(w, "parameter is required")
		return
	}
	raw, err := s.telldus.SetDeviceParameter(r.Context(), pathID(r), req.Parameter, req.Value)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeRaw(w, raw)
}

// handleDeviceHistory reads from and to as unix seconds. to defaults to now
// and from to one day before to.
func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	to := s.now()
	if v := q.Get("to"); v != "" {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeBadRequest(w, "to must be unix seconds")
			return
		}
		to = time.Unix(sec, 0)
	}
	from := to.Add(-defaultHistoryWindow)
	if v := q.Get("from"); v != "" {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeBadRequest(w, "from must be unix seconds")
			return
		}
		from = time.Unix(sec, 0)
	}

	raw, err := s.telldus.DeviceHistory(r.Context(), pathID(r), from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeRaw(w, raw)
}

// Sensors

func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.SensorList{Sensor: s.telldus.ListSensors(r.Context())})
}

func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	sensor, err := s.telldus.GetSensorInfo(r.Context(), pathID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sensor)
}

func (s *Server) handleSensorName(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	raw, err := s.telldus.SetSensorName(r.Context(), pathID(r), req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeRaw(w, raw)
}

func (s *Server) handleSensorIgnore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ignore bool `json:"ignore"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	raw, err := s.telldus.SetSensorIgnore(r.Context(), pathID(r), req.Ignore)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeRaw(w, raw)
}
