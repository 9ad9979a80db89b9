package callback

import (
	"strconv"
	"time"
)

// Logs is the per-epoch metrics record handed to hooks. It is passed by
// value: each hook gets its own ephemeral copy, so retaining one is safe
// but never observes later epochs.
//
// LearningRate is carried for logging-schema compatibility only; the
// optimizer family this loop serves assigns it no meaning.
type Logs struct {
	Epoch              int       `json:"epoch"`
	Duration           float64   `json:"duration"`
	TotalImprovement   float64   `json:"total_improvement"`
	Improvement        float64   `json:"improvement"`
	LogProbability     float64   `json:"log_probability"`
	LastLogProbability float64   `json:"last_log_probability"`
	EpochStart         time.Time `json:"epoch_start_time"`
	EpochEnd           time.Time `json:"epoch_end_time"`
	Batches            int       `json:"n_seen_batches"`
	LearningRate       float64   `json:"learning_rate"`
}

// Field is one key/value pair of the serialized logging schema.
type Field struct {
	Key   string
	Value string
}

// Logging schema keys, in serialization order.
const (
	LogKeyEpoch              = "epoch"
	LogKeyDuration           = "duration"
	LogKeyTotalImprovement   = "total_improvement"
	LogKeyImprovement        = "improvement"
	LogKeyLogProbability     = "log_probability"
	LogKeyLastLogProbability = "last_log_probability"
	LogKeyEpochStart         = "epoch_start_time"
	LogKeyEpochEnd           = "epoch_end_time"
	LogKeyBatches            = "n_seen_batches"
	LogKeyLearningRate       = "learning_rate"
)

func formatMetric(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}

// Fields returns the record as ordered key/value pairs. The order is fixed
// across records, so the first record's keys define a stable row schema.
// Floats are formatted to round-trip exactly through strconv.ParseFloat.
func (l Logs) Fields() []Field {
	return []Field{
		{Key: LogKeyEpoch, Value: strconv.Itoa(l.Epoch)},
		{Key: LogKeyDuration, Value: formatMetric(l.Duration)},
		{Key: LogKeyTotalImprovement, Value: formatMetric(l.TotalImprovement)},
		{Key: LogKeyImprovement, Value: formatMetric(l.Improvement)},
		{Key: LogKeyLogProbability, Value: formatMetric(l.LogProbability)},
		{Key: LogKeyLastLogProbability, Value: formatMetric(l.LastLogProbability)},
		{Key: LogKeyEpochStart, Value: l.EpochStart.Format(time.RFC3339Nano)},
		{Key: LogKeyEpochEnd, Value: l.EpochEnd.Format(time.RFC3339Nano)},
		{Key: LogKeyBatches, Value: strconv.Itoa(l.Batches)},
		{Key: LogKeyLearningRate, Value: formatMetric(l.LearningRate)},
	}
}

// Lookup returns the serialized value for one schema key. Unknown keys
// report ok=false instead of panicking, so hooks may probe for keys they
// do not use.
func (l Logs) Lookup(key string) (string, bool) {
	for _, field := range l.Fields() {
		if field.Key == key {
			return field.Value, true
		}
	}
	return "", false
}

// Clone returns a copy of the record. Logs is a value type, so this exists
// for symmetry at retention boundaries rather than deep-copy needs.
func (l Logs) Clone() Logs {
	return l
}
