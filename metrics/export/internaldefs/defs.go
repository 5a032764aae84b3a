package internaldefs

import (
	"sort"

	panelGate "github.com/MrEthical07/panelGate"
	"github.com/MrEthical07/panelGate/gate"
	"github.com/MrEthical07/panelGate/session"
)

// Series is one labelled value of a family.
type Series struct {
	Value string
	ID    panelGate.MetricID
}

// Family is a counter exported once per label value.
type Family struct {
	Name   string
	Help   string
	Label  string
	Series []Series
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   panelGate.MetricID
	Name string
	Help string
}

// Families lists every engine counter family in render order. Label values
// are the rule and operation names the gate and session packages log with.
var Families = []Family{
	{
		Name:  "panelgate_gate_decisions_total",
		Help:  "Gate decisions by the rule that produced them.",
		Label: "rule",
		Series: []Series{
			{Value: gate.RuleExcluded.String(), ID: panelGate.MetricGateExcluded},
			{Value: gate.RuleCitizenLockout.String(), ID: panelGate.MetricGateCitizenLockout},
			{Value: gate.RuleAnonymousProtected.String(), ID: panelGate.MetricGateLoginRedirect},
			{Value: gate.RuleAnonymousPublic.String(), ID: panelGate.MetricGateAnonymousPublic},
			{Value: gate.RuleAuthenticatedLanding.String(), ID: panelGate.MetricGateLandingRedirect},
			{Value: gate.RuleDefault.String(), ID: panelGate.MetricGatePassThrough},
		},
	},
	{
		Name:  "panelgate_session_operations_total",
		Help:  "Session store operations by kind.",
		Label: "op",
		Series: []Series{
			{Value: session.OpSetAuth.String(), ID: panelGate.MetricSessionSetAuth},
			{Value: session.OpLogout.String(), ID: panelGate.MetricSessionLogout},
			{Value: session.OpHydrate.String(), ID: panelGate.MetricSessionHydrated},
		},
	},
	{
		Name:  "panelgate_session_storage_failures_total",
		Help:  "Durable session storage failures by operation.",
		Label: "op",
		Series: []Series{
			{Value: session.OpSetAuth.String(), ID: panelGate.MetricSessionPersistFailure},
			{Value: session.OpLogout.String(), ID: panelGate.MetricSessionDeleteFailure},
			{Value: session.OpHydrate.String(), ID: panelGate.MetricSessionLoadFailure},
		},
	},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: panelGate.MetricGateDecisionLatency, Name: "panelgate_gate_decision_latency_seconds", Help: "Gate decision latency histogram."},
}

const (
	// AuditDroppedName is the family of audit events lost to backpressure.
	AuditDroppedName = "panelgate_audit_dropped_total"
	// AuditDroppedHelp describes AuditDroppedName.
	AuditDroppedHelp = "Audit events dropped by the dispatcher, by event type."
	// AuditDroppedLabel keys the event type.
	AuditDroppedLabel = "event"
)

// DroppedEvents orders per-type drop counts by event type.
func DroppedEvents(byType map[string]uint64) []string {
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// HistogramBounds are the upper bounds of the engine's latency buckets in seconds.
var HistogramBounds = []string{
	"0.000001",
	"0.000005",
	"0.00001",
	"0.00005",
	"0.0001",
	"0.0005",
	"0.001",
	"+Inf",
}

// NormalizeBuckets copies raw into a fixed 8-bucket array, zero-filling short input.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
