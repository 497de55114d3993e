package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/starshipcosmos/authstore"
	"github.com/starshipcosmos/authstore/metrics/export/internaldefs"
)

// Source is satisfied by *authstore.Store of any principal type.
type Source interface {
	Namespace() string
	MetricsSnapshot() authstore.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter renders store metrics in Prometheus text exposition format, one
// series per store labelled by namespace.
type Exporter struct {
	sources []Source
}

// NewExporter renders the given stores, one labelled series each.
func NewExporter(sources ...Source) *Exporter {
	kept := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Exporter{sources: kept}
}

// Handler serves Render on every request.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

type sample struct {
	namespace string
	snapshot  authstore.MetricsSnapshot
	dropped   uint64
}

// Render returns the current metrics. Stores with metrics disabled are
// skipped; the result is empty when every store is.
func (p *Exporter) Render() string {
	if p == nil || len(p.sources) == 0 {
		return ""
	}

	samples := make([]sample, 0, len(p.sources))
	for _, src := range p.sources {
		s := sample{
			namespace: src.Namespace(),
			snapshot:  src.MetricsSnapshot(),
			dropped:   src.AuditDropped(),
		}
		if len(s.snapshot.Counters) == 0 && len(s.snapshot.Histograms) == 0 && s.dropped == 0 {
			continue
		}
		samples = append(samples, s)
	}
	if len(samples) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096 * len(samples))

	for _, def := range internaldefs.CounterDefs {
		writeHeader(&b, def.Name, def.Help, "counter")
		for _, s := range samples {
			writeSample(&b, def.Name, s.namespace, "", s.snapshot.Counters[def.ID])
		}
	}

	for _, def := range internaldefs.HistogramDefs {
		headerWritten := false
		for _, s := range samples {
			raw, ok := s.snapshot.Histograms[def.ID]
			if !ok {
				continue
			}
			if !headerWritten {
				writeHeader(&b, def.Name, def.Help, "histogram")
				headerWritten = true
			}
			writeHistogram(&b, def.Name, s.namespace, internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw)))
		}
	}

	writeHeader(&b, internaldefs.AuditDroppedName, "Audit events dropped because the dispatcher buffer was full.", "counter")
	for _, s := range samples {
		writeSample(&b, internaldefs.AuditDroppedName, s.namespace, "", s.dropped)
	}

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

// writeSample writes name{namespace="ns"[,le="le"]} value.
func writeSample(b *strings.Builder, name, namespace, le string, value uint64) {
	b.WriteString(name)
	b.WriteString("{")
	b.WriteString(internaldefs.NamespaceLabel)
	b.WriteString("=\"")
	b.WriteString(escapeLabel(namespace))
	b.WriteByte('"')
	if le != "" {
		b.WriteString(",le=\"")
		b.WriteString(le)
		b.WriteByte('"')
	}
	b.WriteString("} ")
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, namespace string, cumulative [8]uint64) {
	for i, le := range internaldefs.HistogramBounds {
		writeSample(b, name+"_bucket", namespace, le, cumulative[i])
	}
	writeSample(b, name+"_count", namespace, "", cumulative[len(cumulative)-1])
	// Snapshots keep bucket counts only.
	writeSample(b, name+"_sum", namespace, "", 0)
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "\"", "\\\"")
	v = strings.ReplaceAll(v, "\n", "\\n")
	return v
}
