package sock

// Observer receives socket events. Implementations must be safe for use by
// several handles at once.
type Observer interface {
	SocketOpened(t Type)
	SocketClosed(t Type)
	BindCompleted(port, attempts int, err error)
	ConnectCompleted(err error)
	MessageSent(frames int, err error)
	MessageReceived(frames int, err error)
}

type nopObserver struct{}

func (nopObserver) SocketOpened(Type)             {}
func (nopObserver) SocketClosed(Type)             {}
func (nopObserver) BindCompleted(int, int, error) {}
func (nopObserver) ConnectCompleted(error)        {}
func (nopObserver) MessageSent(int, error)        {}
func (nopObserver) MessageReceived(int, error)    {}
