package report

import "envmon/internal/modules/readings/types"

// StatusInfo is the presentation metadata of a status.
type StatusInfo struct {
	Status      types.Status `json:"status"`
	Color       string       `json:"color"`
	Description string       `json:"description"`
}

var statusInfo = map[types.Status]StatusInfo{
	types.StatusNormal:              {Color: "#28a745", Description: "System operating normally"},
	types.StatusAlertTemperature:    {Color: "#ffc107", Description: "Temperature at alert level"},
	types.StatusCriticalTemperature: {Color: "#dc3545", Description: "Temperature at critical level"},
	types.StatusAlertHumidity:       {Color: "#fd7e14", Description: "Humidity at alert level"},
	types.StatusCriticalHumidity:    {Color: "#9c27b0", Description: "Humidity at critical level"},
	types.StatusSensorError:         {Color: "#6c757d", Description: "Sensor failure"},
	types.StatusReadingError:        {Color: "#17a2b8", Description: "Reading could not be taken"},
}

// Describe returns the metadata for s; unknown statuses get a neutral grey.
func Describe(s types.Status) StatusInfo {
	info, ok := statusInfo[s]
	if !ok {
		return StatusInfo{Status: s, Color: "#6c757d", Description: string(s)}
	}
	info.Status = s
	return info
}

// StatusTable lists the metadata of every status in presentation order.
func StatusTable() []StatusInfo {
	out := make([]StatusInfo, 0, len(types.Statuses))
	for _, s := range types.Statuses {
		out = append(out, Describe(s))
	}
	return out
}
