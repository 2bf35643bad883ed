package daywindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestParseClockTime(t *testing.T) {
	tests := []struct {
		in      string
		want    ClockTime
		wantErr bool
	}{
		{in: "07:30", want: ClockTime{7, 30}},
		{in: "7:05", want: ClockTime{7, 5}},
		{in: " 22:00 ", want: ClockTime{22, 0}},
		{in: "00:00", want: ClockTime{0, 0}},
		{in: "23:59", want: ClockTime{23, 59}},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "-1:10", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "12", wantErr: true},
		{in: "12:xx", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClockTime(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClockTime)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) ClockTime {
	t.Helper()
	ct, err := ParseClockTime(s)
	require.NoError(t, err)
	return ct
}

func TestClockTimeOn(t *testing.T) {
	loc := mustLoc(t, "Europe/Berlin")
	day := time.Date(2024, time.May, 10, 15, 42, 17, 999, loc)

	got := ClockTime{7, 30}.On(day)
	assert.Equal(t, time.Date(2024, time.May, 10, 7, 30, 0, 0, loc), got)
}

func TestCompute(t *testing.T) {
	loc := mustLoc(t, "Europe/Berlin")
	today := time.Date(2024, time.May, 10, 12, 0, 0, 0, loc)
	cfg := Config{WakeUp: ClockTime{7, 30}, BedTime: ClockTime{22, 0}, Slack: DefaultSlack}

	tests := []struct {
		name      string
		sunrise   time.Time
		sunset    time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "user_hours_wider_than_daylight",
			sunrise:   time.Date(2024, time.May, 10, 8, 0, 0, 0, loc),
			sunset:    time.Date(2024, time.May, 10, 20, 0, 0, 0, loc),
			wantStart: time.Date(2024, time.May, 10, 7, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, time.May, 10, 22, 30, 0, 0, loc),
		},
		{
			name:      "daylight_wider_than_user_hours",
			sunrise:   time.Date(2024, time.May, 10, 5, 12, 0, 0, loc),
			sunset:    time.Date(2024, time.May, 10, 23, 1, 0, 0, loc),
			wantStart: time.Date(2024, time.May, 10, 5, 12, 0, 0, loc),
			wantEnd:   time.Date(2024, time.May, 10, 23, 1, 0, 0, loc),
		},
		{
			name:      "utc_inputs",
			sunrise:   time.Date(2024, time.May, 10, 3, 30, 0, 0, time.UTC),
			sunset:    time.Date(2024, time.May, 10, 18, 45, 0, 0, time.UTC),
			wantStart: time.Date(2024, time.May, 10, 5, 30, 0, 0, loc),
			wantEnd:   time.Date(2024, time.May, 10, 22, 30, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Compute(tt.sunrise, tt.sunset, cfg, today)
			require.NoError(t, err)
			assert.True(t, tt.wantStart.Equal(w.Start), "start = %s, want %s", w.Start, tt.wantStart)
			assert.True(t, tt.wantEnd.Equal(w.End), "end = %s, want %s", w.End, tt.wantEnd)
			assert.True(t, w.Start.Before(w.End))
			assert.Equal(t, time.Date(2024, time.May, 10, 0, 0, 0, 0, loc), w.Date)
		})
	}
}

func TestCompute_ExactMinMax(t *testing.T) {
	today := time.Date(2024, time.January, 3, 9, 0, 0, 0, time.UTC)
	cfg := Config{WakeUp: ClockTime{6, 45}, BedTime: ClockTime{21, 15}, Slack: 10 * time.Minute}

	for h := 4; h <= 10; h++ {
		sunrise := time.Date(2024, time.January, 3, h, 7, 0, 0, time.UTC)
		sunset := time.Date(2024, time.January, 3, h+10, 53, 0, 0, time.UTC)

		w, err := Compute(sunrise, sunset, cfg, today)
		require.NoError(t, err)

		wake := cfg.WakeUp.On(today).Add(-cfg.Slack)
		bed := cfg.BedTime.On(today).Add(cfg.Slack)
		wantStart, wantEnd := sunrise, sunset
		if wake.Before(wantStart) {
			wantStart = wake
		}
		if bed.After(wantEnd) {
			wantEnd = bed
		}
		assert.True(t, wantStart.Equal(w.Start), "sunrise %s", sunrise)
		assert.True(t, wantEnd.Equal(w.End), "sunset %s", sunset)
	}
}

func TestCompute_ZeroSlack(t *testing.T) {
	today := time.Date(2024, time.January, 3, 9, 0, 0, 0, time.UTC)
	cfg := Config{WakeUp: ClockTime{6, 0}, BedTime: ClockTime{20, 0}}
	sunrise := time.Date(2024, time.January, 3, 8, 0, 0, 0, time.UTC)
	sunset := time.Date(2024, time.January, 3, 16, 0, 0, 0, time.UTC)

	w, err := Compute(sunrise, sunset, cfg, today)
	require.NoError(t, err)
	assert.Equal(t, cfg.WakeUp.On(today), w.Start)
	assert.Equal(t, cfg.BedTime.On(today), w.End)
	assert.Equal(t, 14*time.Hour, w.Duration())
	assert.Equal(t, time.Date(2024, time.January, 3, 13, 0, 0, 0, time.UTC), w.Midday())
}

func TestCompute_Inverted(t *testing.T) {
	today := time.Date(2024, time.January, 3, 9, 0, 0, 0, time.UTC)
	// Bed time before wake-up and a degenerate sun day
	cfg := Config{WakeUp: ClockTime{23, 0}, BedTime: ClockTime{1, 0}}
	sunrise := time.Date(2024, time.January, 3, 23, 30, 0, 0, time.UTC)
	sunset := time.Date(2024, time.January, 3, 0, 30, 0, 0, time.UTC)

	_, err := Compute(sunrise, sunset, cfg, today)
	assert.ErrorIs(t, err, ErrInvertedWindow)
}

func TestCompute_InvalidConfig(t *testing.T) {
	today := time.Date(2024, time.January, 3, 9, 0, 0, 0, time.UTC)
	rise := today.Add(-time.Hour)
	set := today.Add(6 * time.Hour)

	_, err := Compute(rise, set, Config{WakeUp: ClockTime{25, 0}, BedTime: ClockTime{22, 0}}, today)
	assert.ErrorIs(t, err, ErrInvalidClockTime)

	_, err = Compute(rise, set, Config{WakeUp: ClockTime{7, 0}, BedTime: ClockTime{22, 0}, Slack: -time.Minute}, today)
	assert.Error(t, err)
}

func TestWindowIsToday(t *testing.T) {
	loc := mustLoc(t, "America/New_York")
	today := time.Date(2024, time.July, 4, 10, 0, 0, 0, loc)
	w, err := Compute(today.Add(-4*time.Hour), today.Add(9*time.Hour),
		Config{WakeUp: ClockTime{7, 0}, BedTime: ClockTime{22, 0}}, today)
	require.NoError(t, err)

	assert.True(t, w.IsToday(time.Date(2024, time.July, 4, 23, 59, 0, 0, loc)))
	// 03:30 UTC on the 5th is still the 4th in New York
	assert.True(t, w.IsToday(time.Date(2024, time.July, 5, 3, 30, 0, 0, time.UTC)))
	assert.False(t, w.IsToday(time.Date(2024, time.July, 5, 0, 0, 1, 0, loc)))
}
