package conf

var globalConf *AppConfig

// Get the global pvshare configuration object.
func Get() *AppConfig {
	return globalConf
}

// Load the global pvshare configuration.
func Load(s *Source) error {
	c, err := s.Read()
	if err != nil {
		return err
	}
	globalConf = c
	return nil
}
