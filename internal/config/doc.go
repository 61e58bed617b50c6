// Package config loads the storefront runtime configuration.
//
// Settings are merged from four layers, higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  4. Overrides (flags)       │  ← Highest priority
//	├─────────────────────────────┤
//	│  3. Environment Variables   │  ← STOREFRONT_*
//	├─────────────────────────────┤
//	│  2. Config File             │  ← .toml, .yaml or .yml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// # Sub-packages
//
//   - loader: file and environment loaders, DeepMerge
//   - watcher: fsnotify-based file watching for live reload
//
// # Usage
//
//	cfg, err := config.Load(config.LoadOptions{Path: "storefront.toml"})
//	if err != nil {
//	    return err
//	}
//
//	r, err := config.Watch(opts, func(cfg *config.Config) {
//	    logger.SetLevel(app.ParseLogLevel(cfg.Logging.Level))
//	}, nil)
package config
