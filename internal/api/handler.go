package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eugenenazirov/disk-span/internal/binpack"
	"github.com/eugenenazirov/disk-span/internal/metrics"
	"github.com/eugenenazirov/disk-span/internal/plan"
	"github.com/eugenenazirov/disk-span/internal/storage"
)

type contextKey string

const (
	requestIDContextKey   contextKey = "requestID"
	packOutcomeContextKey contextKey = "packOutcome"
)

const defaultMaxBodyBytes = 8 << 20

// Handler wires storage and metrics dependencies into HTTP handlers.
type Handler struct {
	storage storage.Storage
	metrics *metrics.Metrics

	clock        func() time.Time
	maxBodyBytes int64

	mu                sync.RWMutex
	capacityUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithMetrics records packing runs into m.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithMaxBodyBytes limits the size of pack and plan request bodies.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage:      store,
		maxBodyBytes: defaultMaxBodyBytes,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.capacityUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetCapacity(w http.ResponseWriter, r *http.Request) {
	_ = r
	capacity, err := h.storage.GetCapacity()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := capacityResponse{
		Capacity:  capacity,
		UpdatedAt: h.currentCapacityUpdatedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePutCapacity(w http.ResponseWriter, r *http.Request) {
	var req capacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if err := h.storage.SetCapacity(req.Capacity); err != nil {
		if errors.Is(err, storage.ErrInvalidCapacity) {
			writeError(w, http.StatusBadRequest, "Invalid capacity", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	h.markCapacityUpdated()

	capacity, err := h.storage.GetCapacity()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := capacityResponse{
		Capacity:  capacity,
		UpdatedAt: h.currentCapacityUpdatedAt(),
		Message:   "Capacity updated successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePack(w http.ResponseWriter, r *http.Request) {
	var req packRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	capacity, bins, elapsed, ok := h.pack(r.Context(), w, req)
	if !ok {
		return
	}

	stats := binpack.Summarize(bins)
	resp := packResponse{
		Capacity:          capacity,
		BinCount:          stats.Bins,
		TotalItems:        stats.Items,
		TotalSize:         stats.Used,
		UnusedSpace:       stats.Unused,
		Bins:              make([]binPayload, 0, len(bins)),
		CalculationTimeMs: elapsed.Milliseconds(),
	}
	for i, s := range plan.Summarize(bins, capacity) {
		bp := binPayload{
			Index:  s.Index,
			Label:  s.Label,
			Files:  s.Files,
			Used:   s.Used,
			Unused: s.Unused,
			Items:  make([]itemPayload, 0, s.Files),
		}
		for _, it := range bins[i].Contents() {
			bp.Items = append(bp.Items, itemPayload{Name: it.Name, Size: it.Bytes})
		}
		resp.Bins = append(resp.Bins, bp)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Destination) == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "destination is required")
		return
	}

	capacity, bins, _, ok := h.pack(r.Context(), w, req.packRequest)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := plan.WriteScript(&buf, bins, capacity, req.Destination); err != nil {
		writeInternalError(w, err)
		return
	}
	if err := plan.ValidateScript(bytes.NewReader(buf.Bytes())); err != nil {
		writeInternalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/x-shellscript; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", plan.ScriptName))
	w.Header().Set("X-Disk-Count", strconv.Itoa(len(bins)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// pack resolves the capacity and runs the engine, writing the error response
// itself when the run cannot complete.
func (h *Handler) pack(ctx context.Context, w http.ResponseWriter, req packRequest) (int64, []*binpack.Bin[requestItem], time.Duration, bool) {
	capacity, err := h.resolveCapacity(req.Capacity)
	if err != nil {
		writeInternalError(w, err)
		return 0, nil, 0, false
	}

	items := make([]requestItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = requestItem{Name: it.Name, Bytes: it.Size}
	}

	start := time.Now()
	bins, packErr := binpack.FirstFitDecreasing(capacity, items)
	elapsed := time.Since(start)

	switch {
	case packErr == nil:
		h.metrics.ObservePack(metrics.ResultOK, len(bins), len(items), elapsed)
		recordPackOutcome(ctx, metrics.ResultOK, capacity, len(items), len(bins))
		return capacity, bins, elapsed, true
	case errors.Is(packErr, binpack.ErrInvalidCapacity):
		h.metrics.ObservePack(metrics.ResultInvalidCapacity, 0, len(items), elapsed)
		recordPackOutcome(ctx, metrics.ResultInvalidCapacity, capacity, len(items), 0)
		writeError(w, http.StatusBadRequest, "Invalid capacity", packErr.Error())
	default:
		itemErrs := binpack.ItemErrors(packErr)
		if len(itemErrs) == 0 {
			writeInternalError(w, packErr)
			return 0, nil, 0, false
		}
		h.metrics.ObservePack(metrics.ResultRejectedItems, 0, len(items), elapsed)
		recordPackOutcome(ctx, metrics.ResultRejectedItems, capacity, len(items), 0)
		resp := errorResponse{
			Error:      "Cannot pack items",
			Details:    fmt.Sprintf("%d item(s) cannot be placed into bins of %d", len(itemErrs), capacity),
			Suggestion: "Increase the capacity or remove the listed items",
			Items:      make([]rejectedItem, 0, len(itemErrs)),
		}
		for _, e := range itemErrs {
			resp.Items = append(resp.Items, rejectedItem{
				Index:  e.Index,
				Name:   e.Label,
				Size:   e.Size,
				Reason: e.Err.Error(),
			})
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	}
	return 0, nil, 0, false
}

func (h *Handler) resolveCapacity(requested *int64) (int64, error) {
	if requested != nil {
		return *requested, nil
	}
	return h.storage.GetCapacity()
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Invalid request", fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return false
	}
	return true
}

func (h *Handler) currentCapacityUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.capacityUpdatedAt
}

func (h *Handler) markCapacityUpdated() {
	h.mu.Lock()
	h.capacityUpdatedAt = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// requestItem is an item submitted over the API.
type requestItem struct {
	Name  string
	Bytes int64
}

func (i requestItem) Size() int64 {
	return i.Bytes
}

func (i requestItem) String() string {
	return i.Name
}

type capacityRequest struct {
	Capacity int64 `json:"capacity"`
}

type capacityResponse struct {
	Capacity  int64     `json:"capacity"`
	UpdatedAt time.Time `json:"updatedAt"`
	Message   string    `json:"message,omitempty"`
}

type itemPayload struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type packRequest struct {
	Capacity *int64        `json:"capacity,omitempty"`
	Items    []itemPayload `json:"items"`
}

type planRequest struct {
	packRequest
	Destination string `json:"destination"`
}

type binPayload struct {
	Index  int           `json:"index"`
	Label  string        `json:"label"`
	Files  int           `json:"files"`
	Used   int64         `json:"used"`
	Unused int64         `json:"unused"`
	Items  []itemPayload `json:"items"`
}

type packResponse struct {
	Capacity          int64        `json:"capacity"`
	BinCount          int          `json:"binCount"`
	TotalItems        int          `json:"totalItems"`
	TotalSize         int64        `json:"totalSize"`
	UnusedSpace       int64        `json:"unusedSpace"`
	Bins              []binPayload `json:"bins"`
	CalculationTimeMs int64        `json:"calculationTimeMs"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type rejectedItem struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Reason string `json:"reason"`
}

type errorResponse struct {
	Error      string         `json:"error"`
	Details    string         `json:"details,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"`
	Items      []rejectedItem `json:"items,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
