package collect

// DefaultRegistry returns a registry with every built-in platform.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(arubaAPPlatform())
	reg.Register(aosSwitchPlatform())
	reg.Register(aosCXPlatform())
	reg.Register(arubaControllerPlatform())
	return reg
}
