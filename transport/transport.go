package transport

type Protocol string

const (
	TCP  Protocol = "tcp"
	Pipe Protocol = "pipe"
)

type Addr interface {
	Protocol() Protocol
	String() string
}
