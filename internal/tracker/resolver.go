package tracker

// Resolve classifies one obligation into exactly one status. A stored taken or
// skipped intake is authoritative and is never overridden by time comparison;
// without a record the status is inferred from the reference instant. Missed
// is always derived here, never written back to the ledger.
func Resolve(ob Obligation, intake *Intake, refDate, refTime string) Status {
	if intake != nil {
		return intake.Status
	}
	switch {
	case ob.Date == refDate && ob.Time > refTime:
		return StatusPending
	case ob.Date == refDate:
		return StatusMissed
	case ob.Date < refDate:
		return StatusMissed
	default:
		return StatusPending
	}
}

// ResolveAll resolves a whole expanded schedule against the ledger.
func ResolveAll(obligations []Obligation, ledger *Ledger, refDate, refTime string) []ResolvedObligation {
	resolved := make([]ResolvedObligation, 0, len(obligations))
	for _, ob := range obligations {
		intake := ledger.Find(ob.Medicine.ID, ob.Date, ob.Time)
		resolved = append(resolved, ResolvedObligation{
			Obligation: ob,
			Status:     Resolve(ob, intake, refDate, refTime),
			Intake:     intake,
		})
	}
	return resolved
}
