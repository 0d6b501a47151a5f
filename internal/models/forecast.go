package models

// ForecastPeriod is a single forecast window as returned by the upstream
// gridpoints endpoint. The cache layer never inspects these fields; it stores
// the periods array as an opaque serialized blob.
type ForecastPeriod struct {
	Number           int     `json:"number"`
	Name             string  `json:"name"`
	StartTime        string  `json:"startTime"`
	EndTime          string  `json:"endTime"`
	IsDaytime        bool    `json:"isDaytime"`
	Temperature      float64 `json:"temperature"`
	TemperatureUnit  string  `json:"temperatureUnit"`
	WindSpeed        string  `json:"windSpeed"`
	WindDirection    string  `json:"windDirection"`
	ShortForecast    string  `json:"shortForecast"`
	DetailedForecast string  `json:"detailedForecast"`
}

// ForecastResult is the externally visible response shape.
type ForecastResult struct {
	Periods   []ForecastPeriod `json:"periods"`
	ElapsedMs int64            `json:"elapsedMs"`
}

// GridReference addresses a forecast tile in the upstream API's grid
// coordinate system, obtained from the points lookup.
type GridReference struct {
	GridID string
	GridX  int
	GridY  int
}
