package jmx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// propType is one of the four primitive property element kinds a plan
// document carries.
type propType string

const (
	propString propType = "stringProp"
	propBool   propType = "boolProp"
	propInt    propType = "intProp"
	propLong   propType = "longProp"
)

// searchOrder is the fixed lookup order when patching an existing property:
// the first typed form found wins and its type is preserved.
var searchOrder = []propType{propString, propBool, propInt, propLong}

// Canonical property names.
const (
	propNumThreads      = "ThreadGroup.num_threads"
	propRampTime        = "ThreadGroup.ramp_time"
	propScheduler       = "ThreadGroup.scheduler"
	propDuration        = "ThreadGroup.duration"
	propDelay           = "ThreadGroup.delay"
	propDelayedStart    = "ThreadGroup.delayedStart"
	propSameUser        = "ThreadGroup.same_user_on_next_iteration"
	propOnSampleError   = "ThreadGroup.on_sample_error"
	propLoops           = "LoopController.loops"
	propContinueForever = "LoopController.continue_forever"

	propServerDomain   = "HTTPSampler.domain"
	propServerName     = "HTTPSampler.serverName"
	propServerPort     = "HTTPSampler.port"
	propServerPortNum  = "HTTPSampler.portNumber"
	propServerProtocol = "HTTPSampler.protocol"
	propServerProtoTyp = "HTTPSampler.protocolType"
)

const threadGroupClose = "</ThreadGroup>"

// typeFor returns the element type used when inserting a property that the
// document does not yet carry.
func typeFor(name string) propType {
	switch name {
	case propDelayedStart, propScheduler, propContinueForever, propSameUser:
		return propBool
	case propNumThreads, propRampTime:
		return propInt
	case propDuration:
		return propLong
	default:
		return propString
	}
}

// setProp replaces the value of the named property wherever it occurs,
// preserving the typed form it was found in. A property absent in every
// typed form is inserted before the first thread-group closing marker with
// the type the fixed table dictates.
func setProp(doc, name, value string) string {
	for _, t := range searchOrder {
		re := regexp.MustCompile(`<` + string(t) + ` name="` + regexp.QuoteMeta(name) + `">[^<]*</` + string(t) + `>`)
		if re.MatchString(doc) {
			repl := `<` + string(t) + ` name="` + name + `">` + value + `</` + string(t) + `>`
			return re.ReplaceAllLiteralString(doc, repl)
		}
	}
	return insertProp(doc, name, value)
}

// insertProp adds a new typed property element immediately before the first
// thread-group closing marker. Documents without a thread group are left
// untouched.
func insertProp(doc, name, value string) string {
	idx := strings.Index(doc, threadGroupClose)
	if idx < 0 {
		return doc
	}
	t := typeFor(name)
	prop := fmt.Sprintf("    <%s name=\"%s\">%s</%s>\n", t, name, value, t)
	return doc[:idx] + prop + doc[idx:]
}

// valueString renders a decoded JSON value the way it is written into a
// property element.
func valueString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// boolValue interprets a decoded JSON value as a boolean toggle. Only a true
// bool or the literal string "true" count.
func boolValue(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return strings.EqualFold(strings.TrimSpace(x), "true")
	default:
		return false
	}
}

// actionValue maps the user-facing post-error action label to the document
// value the engine understands.
func actionValue(action string) string {
	switch action {
	case "Continue":
		return "continue"
	case "Start Next Thread Loop":
		return "startnextloop"
	case "Stop Thread":
		return "stopthread"
	case "Stop Test":
		return "stoptest"
	case "Stop Test Now":
		return "stoptestnow"
	default:
		return "continue"
	}
}
