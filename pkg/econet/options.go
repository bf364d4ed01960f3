package econet

import "time"

// Credentials the EcoNet mobile application ships with. Every third-party
// client authenticates against the ClearBlade backend using the same system
// key pair, the user is only identified by email and password.
const (
	DefaultHost         = "rheem.clearblade.com"
	DefaultMqttPort     = 1884
	defaultSystemKey    = "e2e699cb0bb0bbb88fc8858cb5a401"
	defaultSystemSecret = "E2E699CB0BE6C6FADDB1B0BC9A20"
)

// ClientOptions contains configurable options for an EcoNet Client.
type ClientOptions struct {
	Email    string
	Password string
	// RestUrl is the base url of the ClearBlade REST API, without a
	// trailing slash.
	RestUrl      string
	MqttHost     string
	MqttPort     int
	SystemKey    string
	SystemSecret string
	// ConnectTimeout bounds how long Connect() waits for the realtime
	// channel before continuing in degraded mode.
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	RequestTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// NewClientOptions will create a new ClientOptions type with the default
// values pointing at the production EcoNet cloud.
//
//	RestUrl: https://rheem.clearblade.com/api/v/1
//	MqttHost: rheem.clearblade.com
//	MqttPort: 1884
//	ConnectTimeout: 10s
func NewClientOptions() *ClientOptions {
	return &ClientOptions{
		Email:             "",
		Password:          "",
		RestUrl:           "https://" + DefaultHost + "/api/v/1",
		MqttHost:          DefaultHost,
		MqttPort:          DefaultMqttPort,
		SystemKey:         defaultSystemKey,
		SystemSecret:      defaultSystemSecret,
		ConnectTimeout:    10 * time.Second,
		PublishTimeout:    10 * time.Second,
		RequestTimeout:    30 * time.Second,
		DisconnectTimeout: 1 * time.Second,
	}
}

// SetEmail will set the account email used to login to the EcoNet cloud.
func (o *ClientOptions) SetEmail(email string) *ClientOptions {
	o.Email = email
	return o
}

// SetPassword will set the account password used to login to the EcoNet
// cloud.
func (o *ClientOptions) SetPassword(password string) *ClientOptions {
	o.Password = password
	return o
}

// SetHost will point both the REST API and the MQTT broker at the given
// host. Mostly useful when the cloud is fronted by a proxy.
func (o *ClientOptions) SetHost(host string) *ClientOptions {
	o.RestUrl = "https://" + host + "/api/v/1"
	o.MqttHost = host
	return o
}

// SetRestUrl overrides the REST base url only, leaving the MQTT broker
// untouched.
func (o *ClientOptions) SetRestUrl(url string) *ClientOptions {
	o.RestUrl = url
	return o
}

// SetMqttPort will set the port of the realtime MQTT broker.
func (o *ClientOptions) SetMqttPort(port int) *ClientOptions {
	o.MqttPort = port
	return o
}

// SetConnectTimeout bounds the time Connect() blocks waiting for the
// realtime channel.
func (o *ClientOptions) SetConnectTimeout(timeout time.Duration) *ClientOptions {
	o.ConnectTimeout = timeout
	return o
}

// SetPublishTimeout bounds the time a command publish waits for the broker
// acknowledgment.
func (o *ClientOptions) SetPublishTimeout(timeout time.Duration) *ClientOptions {
	o.PublishTimeout = timeout
	return o
}

// SetRequestTimeout bounds every HTTP request to the REST API.
func (o *ClientOptions) SetRequestTimeout(timeout time.Duration) *ClientOptions {
	o.RequestTimeout = timeout
	return o
}
