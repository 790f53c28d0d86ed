package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	chatTurnsStartedTotal   atomic.Uint64
	chatTurnsCompletedTotal atomic.Uint64
	chatTurnsFailedTotal    atomic.Uint64
	chatPatchesAppliedTotal atomic.Uint64

	generationsStartedTotal   atomic.Uint64
	generationsCompletedTotal atomic.Uint64
	generationsFailedTotal    atomic.Uint64
	creditsRefundedTotal      atomic.Uint64

	guardValidationRejectedTotal atomic.Uint64
	guardOffTopicRejectedTotal   atomic.Uint64

	generationJobsReceivedTotal             atomic.Uint64
	generationJobsDeletedUnrecoverableTotal atomic.Uint64

	uploadsExtractedTotal atomic.Uint64
	uploadsRejectedTotal  atomic.Uint64

	llmLatency         = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
	generationDuration = newHistogram([]float64{1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

func IncChatTurnStarted()   { chatTurnsStartedTotal.Add(1) }
func IncChatTurnCompleted() { chatTurnsCompletedTotal.Add(1) }
func IncChatTurnFailed()    { chatTurnsFailedTotal.Add(1) }
func IncChatPatchApplied()  { chatPatchesAppliedTotal.Add(1) }

func IncGenerationStarted()   { generationsStartedTotal.Add(1) }
func IncGenerationCompleted() { generationsCompletedTotal.Add(1) }
func IncGenerationFailed()    { generationsFailedTotal.Add(1) }
func IncCreditRefunded()      { creditsRefundedTotal.Add(1) }

func IncGenerationJobsReceived()             { generationJobsReceivedTotal.Add(1) }
func IncGenerationJobsDeletedUnrecoverable() { generationJobsDeletedUnrecoverableTotal.Add(1) }

func IncUploadExtracted() { uploadsExtractedTotal.Add(1) }
func IncUploadRejected()  { uploadsRejectedTotal.Add(1) }

// IncGuardRejected counts an input guard rejection by result code.
func IncGuardRejected(code string) {
	if code == "OFF_TOPIC_REJECTED" {
		guardOffTopicRejectedTotal.Add(1)
		return
	}
	guardValidationRejectedTotal.Add(1)
}

// ObserveLLMLatencyMs records the wall time of one model call in milliseconds.
func ObserveLLMLatencyMs(value float64) {
	llmLatency.Observe(clampNonNegative(value))
}

// ObserveGenerationDurationMs records an end-to-end generation in milliseconds.
func ObserveGenerationDurationMs(value float64) {
	generationDuration.Observe(clampNonNegative(value))
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "chat_turns_started_total", "Chat turns accepted", chatTurnsStartedTotal.Load())
	writeCounter(&buf, "chat_turns_completed_total", "Chat turns that emitted done", chatTurnsCompletedTotal.Load())
	writeCounter(&buf, "chat_turns_failed_total", "Chat turns that emitted an error event", chatTurnsFailedTotal.Load())
	writeCounter(&buf, "chat_patches_applied_total", "Resume updates applied from chat", chatPatchesAppliedTotal.Load())
	writeCounter(&buf, "generations_started_total", "Resume generations started", generationsStartedTotal.Load())
	writeCounter(&buf, "generations_completed_total", "Resume generations completed", generationsCompletedTotal.Load())
	writeCounter(&buf, "generations_failed_total", "Resume generations failed", generationsFailedTotal.Load())
	writeCounter(&buf, "credits_refunded_total", "Credits refunded after failed generations", creditsRefundedTotal.Load())
	writeCounter(&buf, "guard_validation_rejected_total", "Inputs rejected for length or emptiness", guardValidationRejectedTotal.Load())
	writeCounter(&buf, "guard_off_topic_rejected_total", "Inputs rejected as off-topic", guardOffTopicRejectedTotal.Load())
	writeCounter(&buf, "generation_jobs_received_total", "Queued generation jobs received", generationJobsReceivedTotal.Load())
	writeCounter(&buf, "generation_jobs_deleted_unrecoverable_total", "Queued generation jobs dropped as unrecoverable", generationJobsDeletedUnrecoverableTotal.Load())
	writeCounter(&buf, "uploads_extracted_total", "Uploaded files with extracted text", uploadsExtractedTotal.Load())
	writeCounter(&buf, "uploads_rejected_total", "Uploaded files rejected by type, size or content", uploadsRejectedTotal.Load())
	writeHistogram(&buf, "llm_latency_ms", "Model call latency in milliseconds", llmLatency.Snapshot())
	writeHistogram(&buf, "generation_duration_ms", "Generation duration in milliseconds", generationDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	// counts are per bucket; writeHistogram accumulates them.
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// SinceMillis returns the elapsed time since start in milliseconds.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
