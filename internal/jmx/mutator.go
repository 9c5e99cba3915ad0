// Package jmx rewrites JMeter test plan documents as text. The engine's
// plan format is XML, but plans in the wild carry comments, duplicated
// thread groups and vendor extensions that a parse-and-serialize round trip
// would reorder or drop, so properties are patched in place and the rest of
// the document is carried through byte for byte.
package jmx

import (
	"path/filepath"
	"regexp"

	"go.uber.org/zap"

	"github.com/parm-bits/stress-admin-backend/pkg/logger"
	"github.com/parm-bits/stress-admin-backend/pkg/utils"
)

// Config carries the per-run settings applied to a plan document. The JSON
// payloads come straight from the use case record; either may be empty.
type Config struct {
	ThreadGroupJSON string
	ServerJSON      string
	// DataFilePath is the resolved path of the data file backing the plan's
	// CSV readers, empty when the plan reads no data file.
	DataFilePath string
}

// Mutator applies run configuration to plan documents. dataDir is the
// directory on the engine host where data files live at run time; CSV
// reader references are repointed there.
type Mutator struct {
	dataDir string
}

func NewMutator(dataDir string) *Mutator {
	return &Mutator{dataDir: dataDir}
}

// Mutate returns a copy of document with cfg applied. Each configuration
// section is independent: a malformed JSON payload is logged and skipped
// without blocking the others, and the document is never left half patched
// by a bad section.
func (m *Mutator) Mutate(document string, cfg Config) string {
	doc := m.rewriteDataFileRefs(document, cfg.DataFilePath)
	doc = applyThreadGroup(doc, cfg.ThreadGroupJSON)
	doc = applyServer(doc, cfg.ServerJSON)
	return doc
}

// applyThreadGroup patches thread-group behavior from a JSON settings map.
//
// Loop policy: an infinite marker wins over any loop count, writing -1 loops
// and pinning the scheduler off so the engine cannot cut the run short. A
// finite run writes the requested count, one when unspecified.
func applyThreadGroup(doc, rawJSON string) string {
	if rawJSON == "" {
		return doc
	}
	cfg, err := utils.FromJSON[map[string]any](rawJSON)
	if err != nil {
		logger.Warn("thread group config is not valid JSON, skipping", zap.Error(err))
		return doc
	}

	if v, ok := cfg["numberOfThreads"]; ok {
		doc = setProp(doc, propNumThreads, valueString(v))
	}
	if v, ok := cfg["rampUpPeriod"]; ok {
		doc = setProp(doc, propRampTime, valueString(v))
	}

	infinite := boolValue(cfg["infiniteLoop"])
	if infinite {
		doc = setProp(doc, propLoops, "-1")
		doc = setProp(doc, propContinueForever, "true")
		doc = setProp(doc, propScheduler, "false")
	} else {
		loops := "1"
		if v, ok := cfg["loopCount"]; ok {
			loops = valueString(v)
		}
		doc = setProp(doc, propLoops, loops)
		doc = setProp(doc, propContinueForever, "false")
	}

	duration, hasDuration := cfg["duration"]
	_, hasDelay := cfg["startupDelay"]
	if !infinite {
		if hasDuration || hasDelay {
			doc = setProp(doc, propScheduler, "true")
			if hasDuration {
				doc = setProp(doc, propDuration, valueString(duration))
			}
		} else if v, ok := cfg["specifyThreadLifetime"]; ok {
			doc = setProp(doc, propScheduler, valueString(boolValue(v)))
		}
	}
	if v, ok := cfg["startupDelay"]; ok {
		doc = setProp(doc, propDelay, valueString(v))
	}

	if v, ok := cfg["sameUserOnEachIteration"]; ok {
		doc = setProp(doc, propSameUser, valueString(boolValue(v)))
	}
	if v, ok := cfg["delayThreadCreation"]; ok {
		doc = setProp(doc, propDelayedStart, valueString(boolValue(v)))
	}
	if v, ok := cfg["actionAfterSamplerError"]; ok {
		doc = setProp(doc, propOnSampleError, actionValue(valueString(v)))
	}
	return doc
}

// applyServer patches sampler target settings. Samplers name the same
// setting under two property keys depending on their vintage, so each
// setting writes both.
func applyServer(doc, rawJSON string) string {
	if rawJSON == "" {
		return doc
	}
	cfg, err := utils.FromJSON[map[string]any](rawJSON)
	if err != nil {
		logger.Warn("server config is not valid JSON, skipping", zap.Error(err))
		return doc
	}

	if v, ok := cfg["server"]; ok {
		s := valueString(v)
		doc = setProp(doc, propServerDomain, s)
		doc = setProp(doc, propServerName, s)
	}
	if v, ok := cfg["port"]; ok {
		s := valueString(v)
		doc = setProp(doc, propServerPort, s)
		doc = setProp(doc, propServerPortNum, s)
	}
	if v, ok := cfg["protocol"]; ok {
		s := valueString(v)
		doc = setProp(doc, propServerProtocol, s)
		doc = setProp(doc, propServerProtoTyp, s)
	}
	return doc
}

var (
	csvBlockRe = regexp.MustCompile(`(?s)<CSVDataSet[^>]*>.*?</CSVDataSet>`)
	filenameRe = regexp.MustCompile(`<stringProp name="filename">[^<]*</stringProp>`)
)

// rewriteDataFileRefs repoints every CSV reader in the document at the copy
// of the data file under the mutator's data directory. Only the filename
// property inside each reader block is touched, so an unrelated filename
// property elsewhere in the plan survives. Applying the rewrite twice yields
// the same bytes.
func (m *Mutator) rewriteDataFileRefs(doc, dataFilePath string) string {
	if dataFilePath == "" {
		return doc
	}
	target := filepath.Join(m.dataDir, filepath.Base(dataFilePath))
	repl := `<stringProp name="filename">` + target + `</stringProp>`
	return csvBlockRe.ReplaceAllStringFunc(doc, func(block string) string {
		return filenameRe.ReplaceAllLiteralString(block, repl)
	})
}
