package indicators

import (
	"math"

	"github.com/sells-group/equity-cli/internal/model"
)

// SpikeFactor is how far the latest volume must exceed the 50-day average
// to count as a spike.
const SpikeFactor = 1.5

// VolumeTrends averages daily volume over 10, 50 and 200 sessions, flags a
// spike and labels the short-term trend. Short histories average what is
// available. It returns nil for an empty series.
func VolumeTrends(volumes []float64) *model.VolumeTrends {
	if len(volumes) == 0 {
		return nil
	}

	latest := last(volumes)
	avg10 := math.Round(mean(tail(volumes, 10)))
	avg50 := math.Round(mean(tail(volumes, 50)))
	avg200 := math.Round(mean(tail(volumes, 200)))
	spike := latest > avg50*SpikeFactor

	vt := &model.VolumeTrends{
		LatestVolume: finite(latest),
		AvgVolume10:  finite(avg10),
		AvgVolume50:  finite(avg50),
		AvgVolume200: finite(avg200),
		VolumeSpike:  &spike,
		Trend:        TrendDecreasing,
	}
	if avg10 > avg50 {
		vt.Trend = TrendIncreasing
	}
	return vt
}
