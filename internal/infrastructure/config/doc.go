// Package config loads the MacroDeck YAML configuration, applies
// environment overrides, fills defaults, and validates the result.
// Loading happens once at startup; the returned Config is read-only
// after that.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Stream.Target)
//
// Broker passwords and telemetry tokens belong in environment
// variables, not the YAML file. Keep the file itself 0600.
package config
