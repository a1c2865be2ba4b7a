package conf

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AppConfig is a type holding general configuration values.
// Most of the pvshare code that needs to reference configuration
// should do so via this type.
type AppConfig struct {
	// DriverName is the CSI driver that backs source volumes.
	// Sharing is only defined for volumes provisioned by this driver.
	DriverName string `mapstructure:"driver-name"`
	// Kubeconfig optionally overrides the kubeconfig file location.
	Kubeconfig string `mapstructure:"kubeconfig"`
	// LabelDomain is the prefix applied to every ownership label key.
	LabelDomain string `mapstructure:"label-domain"`
	// SharedBy is the marker value identifying resources this tool manages.
	SharedBy string `mapstructure:"shared-by"`
}

// Validate the configuration values.
func (c *AppConfig) Validate() error {
	if c.DriverName == "" {
		return fmt.Errorf("driver-name must not be empty")
	}
	if c.LabelDomain == "" {
		return fmt.Errorf("label-domain must not be empty")
	}
	if c.SharedBy == "" {
		return fmt.Errorf("shared-by must not be empty")
	}
	return nil
}

// Source is how external configuration sources populate the app config.
type Source struct {
	v    *viper.Viper
	fset *pflag.FlagSet
}

// NewSource creates a new Source based on default configuration values.
func NewSource() *Source {
	v := viper.New()
	v.SetDefault("driver-name", "nfs.csi.k8s.io")
	v.SetDefault("kubeconfig", "")
	v.SetDefault("label-domain", "pvshare.kubestorage.io")
	v.SetDefault("shared-by", "pvshare")
	return &Source{v: v}
}

// Flags returns a pflag FlagSet populated with flags based on the default
// configuration. If used, flags allow changing configuration values on
// the CLI.
// Once parsed these flags act as a configuration source.
func (s *Source) Flags() *pflag.FlagSet {
	if s.fset != nil {
		return s.fset
	}
	s.fset = pflag.NewFlagSet("conf", pflag.ExitOnError)
	for _, k := range s.v.AllKeys() {
		s.fset.String(k, "",
			fmt.Sprintf("Specify the %q configuration parameter", k))
	}
	return s.fset
}

// Read a new AppConfig from all available sources.
func (s *Source) Read() (*AppConfig, error) {
	v := s.v

	// we look in /etc/pvshare and the working dir for
	// yaml/toml/etc config files (none are required)
	v.AddConfigPath("/etc/pvshare")
	v.AddConfigPath(".")
	v.SetConfigName("pvshare")
	err := v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// we automatically pull from the environment
	v.SetEnvPrefix("PVSHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// use cli flags if available
	if s.fset != nil {
		v.BindPFlags(s.fset)
	}

	// we isolate config handling to this package. thus we marshal
	// our config to the public AppConfig type and return that.
	c := &AppConfig{}
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}
	return c, nil
}
