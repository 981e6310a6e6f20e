package metrics

const (
	LabelAction    = "action"
	LabelKind      = "kind"
	LabelReason    = "reason"
	LabelField     = "field"
	LabelCached    = "cached"
	LabelFrom      = "from"
	LabelTo        = "to"
	LabelOperation = "operation"
	LabelResult    = "result"
	LabelRoute     = "route"
	LabelMethod    = "method"
	LabelCode      = "code"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

func result(success bool) string {
	if success {
		return ResultSuccess
	}
	return ResultFailure
}
