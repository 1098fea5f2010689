package stream

// Publisher is the slice of the MQTT client the sink needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTSink mirrors stream events onto an MQTT topic so dashboards and
// recorders can observe runs without sitting on the UDP path. QoS 0,
// not retained: the stream is real-time, stale events are worthless.
type MQTTSink struct {
	client Publisher
	topic  string
}

// NewMQTTSink creates a sink publishing to the given topic.
func NewMQTTSink(client Publisher, topic string) *MQTTSink {
	return &MQTTSink{client: client, topic: topic}
}

// Send publishes one event.
func (s *MQTTSink) Send(ev Event) error {
	data, err := ev.Encode()
	if err != nil {
		return err
	}
	return s.client.Publish(s.topic, data, 0, false)
}

// Close is a no-op; the MQTT client's lifecycle belongs to the caller.
func (s *MQTTSink) Close() error {
	return nil
}
