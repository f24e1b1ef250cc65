package consensus

import "go.uber.org/zap"

// getLogger returns a development-mode console logger scoped to this
// package, the same construction the rest of this repository
// reaches for when none is supplied.
func getLogger() (*zap.Logger, error) {
	cc := zap.NewDevelopmentConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.Encoding = "console"

	log, err := cc.Build()
	if err != nil {
		return nil, err
	}
	return log.With(zap.String("module", "dbft")), nil
}
