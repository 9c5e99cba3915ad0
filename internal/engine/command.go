package engine

import (
	"os/exec"
	"strconv"
	"strings"

	"github.com/parm-bits/stress-admin-backend/internal/config"
	"github.com/parm-bits/stress-admin-backend/pkg/utils"
)

const defaultRunDurationSeconds = 300

// buildCommand shapes the invocation for the executable form: Windows batch
// scripts go through cmd.exe, jars through the JVM, shell scripts through
// bash, anything else runs directly.
func buildCommand(executable string, args []string) *exec.Cmd {
	switch {
	case strings.HasSuffix(executable, ".bat"):
		return exec.Command("cmd.exe", append([]string{"/c", executable}, args...)...)
	case strings.HasSuffix(executable, ".jar"):
		return exec.Command("java", append([]string{"-Xmx1024m", "-jar", executable}, args...)...)
	case strings.HasSuffix(executable, ".sh"):
		return exec.Command("bash", append([]string{executable}, args...)...)
	default:
		return exec.Command(executable, args...)
	}
}

// engineArgs builds the non-GUI run argument vector. The save-service flags
// keep result files lean enough for long runs; response payloads are not
// recorded.
func engineArgs(planPath, resultFile, reportDir string, users int, durationSeconds int64, dataFilePath string, cfg config.EngineConfig) []string {
	rampup := durationSeconds / 5
	if rampup < 60 {
		rampup = 60
	}

	args := []string{
		"-n",
		"-t", planPath,
		"-l", resultFile,
		"-Jusers=" + strconv.Itoa(users),
		"-e",
		"-o", reportDir,
		"-Jrampup=" + strconv.FormatInt(rampup, 10),
		"-Jjmeter.save.saveservice.output_format=csv",
		"-Jjmeter.save.saveservice.response_data=false",
		"-Jjmeter.save.saveservice.samplerData=false",
		"-Jjmeter.save.saveservice.response_data.on_error=false",
		"-Jjmeter.save.saveservice.autoflush=true",
		"-Jjmeter.save.saveservice.print_field_names=false",
	}
	if dataFilePath != "" {
		args = append(args, "-JcsvPath="+dataFilePath)
	}
	if cfg.RemoteEnabled && cfg.RemoteHost != "" {
		args = append(args, "-r", "-R", cfg.RemoteHost)
	}
	return args
}

// PlannedDuration extracts the planned duration in seconds from the thread
// group settings, falling back to a default when absent or unreadable.
func PlannedDuration(threadGroupJSON string) int64 {
	if threadGroupJSON == "" {
		return defaultRunDurationSeconds
	}
	cfg, err := utils.FromJSON[map[string]any](threadGroupJSON)
	if err != nil {
		return defaultRunDurationSeconds
	}
	switch v := cfg["duration"].(type) {
	case float64:
		if v > 0 {
			return int64(v)
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return defaultRunDurationSeconds
}
