package engine

import (
	"os"

	"github.com/parm-bits/stress-admin-backend/internal/config"
)

// conventionalEnginePaths are probed when neither the configured path nor
// any alternate resolves.
var conventionalEnginePaths = []string{
	"/opt/jmeter/bin/jmeter.sh",
	"/usr/local/jmeter/bin/jmeter.sh",
	"/home/ubuntu/apache-jmeter-5.6.3/bin/jmeter.sh",
	"/opt/apache-jmeter-5.6.3/bin/jmeter.sh",
	"/usr/share/jmeter/bin/jmeter.sh",
	"/opt/jmeter/bin/jmeter",
	"/usr/local/jmeter/bin/jmeter",
	"/home/ubuntu/apache-jmeter-5.6.3/bin/jmeter",
	"/opt/apache-jmeter-5.6.3/bin/jmeter",
}

// ResolveEngine returns the first usable engine executable: the configured
// path, then the configured alternates, then the conventional install
// locations.
func ResolveEngine(cfg config.EngineConfig) (string, error) {
	var candidates []string
	if cfg.Path != "" {
		candidates = append(candidates, cfg.Path)
	}
	candidates = append(candidates, cfg.AlternatePaths...)
	candidates = append(candidates, conventionalEnginePaths...)

	for _, p := range candidates {
		if fileExists(p) {
			return p, nil
		}
	}
	return "", ErrEngineNotFound
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
