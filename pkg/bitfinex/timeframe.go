package bitfinex

import "fmt"

// Timeframe is the candle timeframe used in subscription keys
type Timeframe string

// TimeframeMeta holds the DB label and duration for a candle Timeframe
type TimeframeMeta struct {
	APIValue string
	DBValue  string
	Minutes  int
}

const (
	Timeframe1Min   Timeframe = "1m"
	Timeframe5Min   Timeframe = "5m"
	Timeframe15Min  Timeframe = "15m"
	Timeframe30Min  Timeframe = "30m"
	Timeframe1Hour  Timeframe = "1h"
	Timeframe3Hour  Timeframe = "3h"
	Timeframe6Hour  Timeframe = "6h"
	Timeframe12Hour Timeframe = "12h"
	TimeframeDaily  Timeframe = "1D"
	TimeframeWeekly Timeframe = "7D"
	Timeframe2Week  Timeframe = "14D"
	TimeframeMonth  Timeframe = "1M"
)

// validTimeframes maps Timeframe to its API and DB representations
var validTimeframes = map[Timeframe]TimeframeMeta{
	Timeframe1Min:   {APIValue: "1m", DBValue: "1m", Minutes: 1},
	Timeframe5Min:   {APIValue: "5m", DBValue: "5m", Minutes: 5},
	Timeframe15Min:  {APIValue: "15m", DBValue: "15m", Minutes: 15},
	Timeframe30Min:  {APIValue: "30m", DBValue: "30m", Minutes: 30},
	Timeframe1Hour:  {APIValue: "1h", DBValue: "1h", Minutes: 60},
	Timeframe3Hour:  {APIValue: "3h", DBValue: "3h", Minutes: 180},
	Timeframe6Hour:  {APIValue: "6h", DBValue: "6h", Minutes: 360},
	Timeframe12Hour: {APIValue: "12h", DBValue: "12h", Minutes: 720},
	TimeframeDaily:  {APIValue: "1D", DBValue: "1d", Minutes: 1440},   // 24*60
	TimeframeWeekly: {APIValue: "7D", DBValue: "1w", Minutes: 10080},  // 7*24*60
	Timeframe2Week:  {APIValue: "14D", DBValue: "2w", Minutes: 20160}, // 14*24*60
	TimeframeMonth:  {APIValue: "1M", DBValue: "1M", Minutes: 43200},  // 30*24*60, calendar months vary
}

// IsValid checks if the Timeframe is a valid predefined timeframe
func (t Timeframe) IsValid() bool {
	_, ok := validTimeframes[t]
	return ok
}

// ParseTimeframe parses a string into a valid Timeframe
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if !tf.IsValid() {
		return "", fmt.Errorf("invalid Timeframe: %s", s)
	}
	return tf, nil
}

// Meta returns the TimeframeMeta for a valid Timeframe.
func (t Timeframe) Meta() (TimeframeMeta, error) {
	meta, ok := validTimeframes[t]
	if !ok {
		return TimeframeMeta{}, fmt.Errorf("invalid Timeframe: %s", string(t))
	}
	return meta, nil
}
