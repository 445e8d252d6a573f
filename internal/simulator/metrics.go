package simulator

import (
	"github.com/akaushal/resinet/internal/models"
)

// SeriesPoint is one sample of a resilience metric time series.
type SeriesPoint struct {
	Time  int64
	Value float64
}

// ECSSeries computes the equitable consumer serviceability series for one
// infrastructure: at each sample time, the mean over consumers of the clipped
// service ratio min(served/nominal, 1). Every consumer counts equally
// regardless of its demand size.
func ECSSeries(rec *models.RunRecords, infra models.Infra) []SeriesPoint {
	return series(rec, infra, func(recs []models.ServiceLevelRecord) float64 {
		if len(recs) == 0 {
			return 1
		}
		var sum float64
		for _, r := range recs {
			sum += clippedRatio(r.Served, r.Nominal)
		}
		return sum / float64(len(recs))
	})
}

// PCSSeries computes the prioritized consumer serviceability series: the
// ratio of total clipped served demand to total nominal demand, which weights
// each consumer by its demand.
func PCSSeries(rec *models.RunRecords, infra models.Infra) []SeriesPoint {
	return series(rec, infra, func(recs []models.ServiceLevelRecord) float64 {
		var served, nominal float64
		for _, r := range recs {
			s := r.Served
			if s > r.Nominal {
				s = r.Nominal
			}
			served += s
			nominal += r.Nominal
		}
		if nominal <= 0 {
			return 1
		}
		return served / nominal
	})
}

func clippedRatio(served, nominal float64) float64 {
	if nominal <= 0 {
		return 1
	}
	r := served / nominal
	if r > 1 {
		return 1
	}
	if r < 0 {
		return 0
	}
	return r
}

func series(rec *models.RunRecords, infra models.Infra, reduce func([]models.ServiceLevelRecord) float64) []SeriesPoint {
	byTime := make(map[int64][]models.ServiceLevelRecord)
	for _, r := range rec.ByInfra(infra) {
		byTime[r.Time] = append(byTime[r.Time], r)
	}
	times := rec.SampleTimes(infra)
	out := make([]SeriesPoint, 0, len(times))
	for _, t := range times {
		out = append(out, SeriesPoint{Time: t, Value: reduce(byTime[t])})
	}
	return out
}

// EOH integrates the service deficit 1 - m(t) over the series with the
// trapezoid rule and returns equivalent outage hours. A run at full service
// throughout yields exactly zero; the result is never negative.
func EOH(series []SeriesPoint) float64 {
	if len(series) < 2 {
		return 0
	}
	var area float64
	for i := 1; i < len(series); i++ {
		dt := float64(series[i].Time - series[i-1].Time)
		if dt <= 0 {
			continue
		}
		d0 := 1 - series[i-1].Value
		d1 := 1 - series[i].Value
		if d0 < 0 {
			d0 = 0
		}
		if d1 < 0 {
			d1 = 0
		}
		area += (d0 + d1) / 2 * dt
	}
	return area / 3600
}

// ResilienceSummary holds the per-system and aggregate outage metrics of one
// run.
type ResilienceSummary struct {
	RunID       string
	ECSOutage   map[models.Infra]float64
	PCSOutage   map[models.Infra]float64
	WeightedEOH float64
}

// Summarize computes per-system EOH on both metrics plus the weighted
// network-level aggregate over the PCS deficit.
func Summarize(rec *models.RunRecords, weights map[models.Infra]float64) *ResilienceSummary {
	sum := &ResilienceSummary{
		RunID:     rec.RunID,
		ECSOutage: make(map[models.Infra]float64, len(models.Infras)),
		PCSOutage: make(map[models.Infra]float64, len(models.Infras)),
	}
	for _, infra := range models.Infras {
		sum.ECSOutage[infra] = EOH(ECSSeries(rec, infra))
		sum.PCSOutage[infra] = EOH(PCSSeries(rec, infra))
		sum.WeightedEOH += weights[infra] * sum.PCSOutage[infra]
	}
	return sum
}
