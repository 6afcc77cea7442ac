package config

// OfficeHoursConfig describes the window business-hours metrics count time
// in. Time outside the window, weekends and holidays contribute zero.
type OfficeHoursConfig struct {
	// Start is the local opening time, "HH:MM".
	Start string `yaml:"start"`

	// End is the local closing time, "HH:MM".
	End string `yaml:"end"`

	// WorkingDays are ISO weekday numbers, 1=Monday through 7=Sunday.
	WorkingDays []int `yaml:"working_days"`

	// Timezone is the IANA zone the window is anchored in.
	Timezone string `yaml:"timezone"`

	// Holidays list dates that contribute zero business time. "YYYY-MM-DD"
	// entries apply to a single year; "MM-DD" entries recur every year.
	Holidays []HolidayEntry `yaml:"holidays,omitempty"`
}

// HolidayEntry is one holiday calendar entry.
type HolidayEntry struct {
	Name string `yaml:"name,omitempty"`
	Date string `yaml:"date"`
}

// DefaultOfficeHoursConfig returns the built-in business-hours defaults.
func DefaultOfficeHoursConfig() *OfficeHoursConfig {
	return &OfficeHoursConfig{
		Start:       "09:00",
		End:         "17:00",
		WorkingDays: []int{1, 2, 3, 4, 5},
		Timezone:    "America/Bogota",
	}
}
