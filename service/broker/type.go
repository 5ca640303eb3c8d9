package broker

// IService publishes values on named topics.
type IService interface {
	Publish(topic string, v interface{}) error
	Close() error
}
