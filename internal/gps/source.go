package gps

// SourceError categorizes a sample-source failure reported by a device. These
// are surfaced to watchers for display; the pipeline never retries them.
type SourceError string

const (
	SourcePermissionDenied    SourceError = "permission_denied"
	SourcePositionUnavailable SourceError = "position_unavailable"
	SourceTimeout             SourceError = "timeout"
)

// SourceErrorFromCode maps the W3C geolocation error codes devices report.
func SourceErrorFromCode(code int) (SourceError, bool) {
	switch code {
	case 1:
		return SourcePermissionDenied, true
	case 2:
		return SourcePositionUnavailable, true
	case 3:
		return SourceTimeout, true
	}
	return "", false
}
