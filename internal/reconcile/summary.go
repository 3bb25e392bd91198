package reconcile

// Summary aggregates a reconciliation batch for reporting.
type Summary struct {
	TotalAreas   int `json:"total_detected_areas"`
	LegalAreas   int `json:"legal_areas"`
	IllegalAreas int `json:"illegal_areas"`
	MixedAreas   int `json:"mixed_areas"`

	TotalAreaHa   float64 `json:"total_detected_area_ha"`
	LegalAreaHa   float64 `json:"legal_area_ha"`
	IllegalAreaHa float64 `json:"illegal_area_ha"`

	ComplianceRatePct float64 `json:"compliance_rate_percent"`
	ViolationRatePct  float64 `json:"violation_rate_percent"`
	MeanConfidence    float64 `json:"average_confidence"`
}

// Summarize computes batch statistics. The illegal hectares of a mixed
// detection are its area outside the lease union, not its whole footprint.
func Summarize(areas []Area) Summary {
	var s Summary
	s.TotalAreas = len(areas)

	var confSum float64
	for _, a := range areas {
		s.TotalAreaHa += a.Polygon.AreaHectares
		confSum += a.Confidence

		switch a.Classification {
		case Legal:
			s.LegalAreas++
			s.LegalAreaHa += a.Polygon.AreaHectares
		case Illegal:
			s.IllegalAreas++
			s.IllegalAreaHa += a.OutsideAreaHa
		case Mixed:
			s.MixedAreas++
			s.IllegalAreaHa += a.OutsideAreaHa
		}
	}

	if s.TotalAreaHa > 0 {
		s.ComplianceRatePct = s.LegalAreaHa / s.TotalAreaHa * 100
		s.ViolationRatePct = s.IllegalAreaHa / s.TotalAreaHa * 100
	}
	if len(areas) > 0 {
		s.MeanConfidence = confSum / float64(len(areas))
	}

	return s
}
