package models

// Activity is a pipeline event sent to the activity index.
type Activity struct {
	Message string
	Object  any
	Filter  LogFilter
}

type LogFilter struct {
	Fields    map[string]string `json:"fields"`
	Timestamp string            `json:"timestamp"`
}
