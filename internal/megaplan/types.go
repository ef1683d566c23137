package megaplan

import "encoding/json"

// Wire shapes of the task API. Dates and work durations arrive as wrapper
// objects: {"value": "2024-01-02T10:00:00+03:00"} and {"value": 5400}
// (seconds).

type listResponse struct {
	Meta struct {
		Pagination struct {
			HasMoreNext bool `json:"hasMoreNext"`
		} `json:"pagination"`
	} `json:"meta"`
	Data []json.RawMessage `json:"data"`
}

type entityResponse struct {
	Data json.RawMessage `json:"data"`
}

type datePayload struct {
	Value string `json:"value"`
}

type durationPayload struct {
	Value float64 `json:"value"` // seconds
}

type refPayload struct {
	ID string `json:"id"`
}

type taskPayload struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Status      string           `json:"status"`
	Owner       *employeePayload `json:"owner"`
	Responsible *employeePayload `json:"responsible"`
	SubTasks    []refPayload     `json:"subTasks"`
	TimeCreated *datePayload     `json:"timeCreated"`
	Activity    *datePayload     `json:"activity"`
	PlannedWork *durationPayload `json:"plannedWork"`
	ActualWork  *durationPayload `json:"actualWork"`
}

type commentPayload struct {
	ID          string           `json:"id"`
	Content     string           `json:"content"`
	Owner       *refPayload      `json:"owner"`
	TimeCreated *datePayload     `json:"timeCreated"`
	WorkDate    *datePayload     `json:"workDate"`
	WorkTime    *durationPayload `json:"workTime"`
}

type employeePayload struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Position    string        `json:"position"`
	Department  *deptPayload  `json:"department"`
	ContactInfo []contactInfo `json:"contactInfo"`
}

type deptPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type contactInfo struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// taskFields is the fixed projection requested from the listing and
// task-by-id endpoints.
var taskFields = []string{
	"id", "name", "status", "owner", "responsible", "subTasks",
	"timeCreated", "activity", "plannedWork", "actualWork",
}

// listQuery is the JSON-encoded query parameter of the listing endpoint.
type listQuery struct {
	Limit     int         `json:"limit"`
	PageAfter *pageCursor `json:"pageAfter,omitempty"`
	Fields    []string    `json:"fields"`
}

type pageCursor struct {
	ContentType string `json:"contentType"`
	ID          string `json:"id"`
}
