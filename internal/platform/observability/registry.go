package observability

import (
	"sort"
	"strings"
	"sync"
)

// Series aggregates every datapoint recorded under one name and label set.
type Series struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Count  int64             `json:"count"`
	Sum    float64           `json:"sum"`
	Min    float64           `json:"min"`
	Max    float64           `json:"max"`
	Last   float64           `json:"last"`
}

// Mean is Sum/Count, or zero for an empty series.
func (s Series) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

type registry struct {
	mu     sync.Mutex
	series map[string]*Series
}

func newRegistry() *registry {
	return &registry{series: make(map[string]*Series)}
}

func seriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	return b.String()
}

func (r *registry) observe(name string, labels map[string]string, value float64) {
	key := seriesKey(name, labels)

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.series[key]
	if !ok {
		copied := make(map[string]string, len(labels))
		for k, v := range labels {
			copied[k] = v
		}
		s = &Series{Name: name, Labels: copied, Min: value, Max: value}
		r.series[key] = s
	}
	s.Count++
	s.Sum += value
	s.Last = value
	if value < s.Min {
		s.Min = value
	}
	if value > s.Max {
		s.Max = value
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.series)
}

func (r *registry) snapshot() []Series {
	r.mu.Lock()
	keys := make([]string, 0, len(r.series))
	for k := range r.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Series, 0, len(keys))
	for _, k := range keys {
		s := *r.series[k]
		labels := make(map[string]string, len(s.Labels))
		for lk, lv := range s.Labels {
			labels[lk] = lv
		}
		s.Labels = labels
		out = append(out, s)
	}
	r.mu.Unlock()
	return out
}
