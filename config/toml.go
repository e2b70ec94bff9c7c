package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	cmtconfig "github.com/cometbft/cometbft/config"
)

// DefaultDirPerm is the default permissions used when creating directories.
const DefaultDirPerm = 0o700

var appTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("appConfigTemplate")
	if appTemplate, err = tmpl.Parse(defaultAppTemplate); err != nil {
		panic(err)
	}
}

// RenderApp renders the [app] section of config.
func RenderApp(config *Config) ([]byte, error) {
	var buffer bytes.Buffer
	if err := appTemplate.Execute(&buffer, config); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// WriteConfigFile writes the CometBFT sections of config to configFilePath
// and appends the [app] section.
func WriteConfigFile(configFilePath string, config *Config) error {
	app, err := RenderApp(config)
	if err != nil {
		return err
	}
	cmtconfig.WriteConfigFile(configFilePath, config.Config)
	f, err := os.OpenFile(configFilePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err = f.Write(app); err != nil {
		return fmt.Errorf("write app config: %w", err)
	}
	return nil
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go.
//
//go:embed app.toml.tpl
var defaultAppTemplate string
