package core

// Environment is the execution context a client is resolved for.
type Environment int

const (
	EnvServer Environment = iota
	EnvBrowser
)

func (e Environment) String() string {
	switch e {
	case EnvServer:
		return "server"
	case EnvBrowser:
		return "browser"
	default:
		return "unknown"
	}
}

func (e Environment) IsServer() bool {
	return e == EnvServer
}
