package serialmux

import "strings"

// Line type tokens for traffic coming from the navigation unit. The unit
// emits exactly one kind of line at a time: a JSON telemetry record, an
// ACK/ERR protocol reply, or free text such as the READY banner.
const (
	LineTypeTelemetry = "telemetry"
	LineTypeAck       = "ack"
	LineTypeErr       = "err"
	LineTypeInfo      = "info"
)

// ClassifyLine inspects a line from the unit and returns its type token.
// The classification is intentionally conservative: only lines that look
// like a JSON object are treated as telemetry, and only exact ACK=/ERR=
// prefixes count as protocol replies. Everything else is info.
func ClassifyLine(line string) string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "{") {
		return LineTypeTelemetry
	}
	if strings.HasPrefix(line, "ACK=") {
		return LineTypeAck
	}
	if strings.HasPrefix(line, "ERR=") {
		return LineTypeErr
	}
	return LineTypeInfo
}

// SplitReply splits an ACK or ERR line into its kind and detail parts:
// "ACK=TARGET_SET,2,0,0" becomes ("TARGET_SET", "2,0,0"). Lines without a
// detail section return an empty detail.
func SplitReply(line string) (kind, detail string) {
	line = strings.TrimSpace(line)
	if i := strings.Index(line, "="); i >= 0 {
		line = line[i+1:]
	}
	if i := strings.Index(line, ","); i >= 0 {
		return line[:i], line[i+1:]
	}
	return line, ""
}
