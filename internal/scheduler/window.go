package scheduler

import (
	"strconv"
	"strings"
)

// IsWithinActiveHours reports whether a notification scheduled at the given
// hour may fire inside the user's wake/sleep window. Boundaries are "HH:mm"
// strings; callers must supply validated values.
//
// The decision is hour-granular: a 07:30 wake time still treats the whole of
// 07:00 as active. This mirrors the app's historical behavior and is kept
// deliberately (see DESIGN.md).
func IsWithinActiveHours(hour int, wakeTime, sleepTime string) bool {
	wakeHour := parseHour(wakeTime)
	sleepHour := parseHour(sleepTime)

	if sleepHour < wakeHour {
		// Window crosses midnight, e.g. wake 07:00 / sleep 02:00
		return hour >= wakeHour || hour < sleepHour
	}

	return hour >= wakeHour && hour < sleepHour
}

func parseHour(hhmm string) int {
	h, _ := strconv.Atoi(strings.SplitN(hhmm, ":", 2)[0])
	return h
}
