package notify

import "go.uber.org/zap"

// Settings selects the sinks. A sink is enabled when its address is set.
type Settings struct {
	NtfyServer       string   `yaml:"ntfy_server_url"`
	NtfyTopic        string   `yaml:"ntfy_topic"`
	SlackWebhook     string   `yaml:"slack_webhook"`
	MQTTBroker       string   `yaml:"mqtt_broker"`
	MQTTTopic        string   `yaml:"mqtt_topic"`
	MQTTClientID     string   `yaml:"mqtt_client_id"`
	BrevoAPIKey      string   `yaml:"brevo_api_key"`
	EmailFrom        string   `yaml:"email_from"`
	EmailTo          string   `yaml:"email_to"`
	EmailMinPriority Priority `yaml:"email_min_priority"`
}

// Build wires every configured sink. A sink that cannot be set up (broker
// unreachable) is logged and skipped; notifications are never fatal.
func Build(s Settings, log *zap.Logger) Multi {
	var m Multi
	if s.NtfyTopic != "" {
		server := s.NtfyServer
		if server == "" {
			server = "https://ntfy.sh"
		}
		m = append(m, NewNtfy(server, s.NtfyTopic))
	}
	if s.SlackWebhook != "" {
		m = append(m, NewSlack(s.SlackWebhook))
	}
	if s.MQTTBroker != "" {
		topic := s.MQTTTopic
		if topic == "" {
			topic = "linkwatch/notify"
		}
		id := s.MQTTClientID
		if id == "" {
			id = "linkwatch"
		}
		pub, err := NewMQTT(s.MQTTBroker, id, topic)
		if err != nil {
			log.Warn("mqtt_disabled", zap.String("broker", s.MQTTBroker), zap.Error(err))
		} else {
			m = append(m, pub)
		}
	}
	if s.BrevoAPIKey != "" && s.EmailFrom != "" && s.EmailTo != "" {
		min := s.EmailMinPriority
		if min == "" {
			min = PriorityHigh
		}
		m = append(m, NewEmail(s.BrevoAPIKey, s.EmailFrom, s.EmailTo, min))
	}
	log.Info("notifiers_configured", zap.Int("count", len(m)))
	return m
}
