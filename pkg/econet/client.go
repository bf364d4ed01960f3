package econet

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// ConnectionState tracks the lifecycle of the cloud session.
type ConnectionState uint32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	// StateDegraded means the REST session is up but the realtime channel
	// is not. Reads keep working on the last fetched catalog, publishes
	// fail with ErrTransport.
	StateDegraded
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Realtime channel topics, parameterized by account id.
const (
	reportedTopic = "user/%s/device/reported"
	desiredTopic  = "user/%s/device/desired"
)

// Client is the interface definition as used by this library, the
// interface is primarily to allow mocking tests.
type Client interface {
	// Connect performs the login, fetches the equipment catalog and brings
	// up the realtime channel. When the realtime channel cannot be
	// established within ConnectTimeout the client continues in degraded
	// mode instead of failing.
	Connect() error
	// Disconnect drops the realtime channel and forgets the session. It is
	// idempotent and safe to call at any time.
	Disconnect() error
	// State returns the current connection state.
	State() ConnectionState

	// Start of the API calls to EcoNet.

	GetEquipment() (*Equipment, error)
	GetWaterHeaters() ([]WaterHeater, error)
	// GetWaterHeater returns a snapshot of one water heater. An empty id
	// resolves to the sole registered water heater when there is exactly
	// one.
	GetWaterHeater(deviceId string) (*WaterHeater, error)
	GetThermostats() ([]Thermostat, error)
	GetThermostat(deviceId string) (*Thermostat, error)

	// SetWaterHeaterMode resolves the mode name against the device's
	// available modes and publishes the change on the desired topic.
	SetWaterHeaterMode(deviceId string, mode string) error
	// SetWaterHeaterTemperature validates the value against the device's
	// setpoint bounds and publishes the change on the desired topic.
	SetWaterHeaterTemperature(deviceId string, temperature int) error

	GetEnergyUsage(deviceId string) (*UsageReport, error)
	GetWaterUsage(deviceId string) (*UsageReport, error)

	NotificationSubscribe(id string, callback NotificationCallback) error
	NotificationUnsubscribe(id string) error
}

// client implements the EcoNet interface.
// Clients are safe for concurrent use by multiple goroutines.
type client struct {
	status uint32

	httpClient *http.Client
	options    ClientOptions
	mqttClient mqtt.Client

	userToken string
	accountId string

	registry *registry

	notificationCallbacks map[string]NotificationCallback
	notificationsMutex    sync.Mutex
}

// NewClient will create an EcoNet client with all the options specified in
// the provided ClientOptions. The client must have the Connect() method
// called on it before it may be used.
func NewClient(options *ClientOptions) Client {
	return &client{
		status: uint32(StateDisconnected),
		httpClient: &http.Client{
			Timeout: options.RequestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: true,
				},
			},
		},
		options:               *options,
		registry:              newRegistry(),
		notificationCallbacks: map[string]NotificationCallback{},
	}
}

func (c *client) State() ConnectionState {
	return ConnectionState(atomic.LoadUint32(&c.status))
}

func (c *client) setState(state ConnectionState) {
	atomic.StoreUint32(&c.status, uint32(state))
}

// Connect logs in, fetches the equipment catalog and brings up the
// realtime channel.
func (c *client) Connect() error {
	state := c.State()
	if state == StateConnected || state == StateDegraded {
		// Already connected to the cloud.
		return nil
	}
	c.setState(StateConnecting)

	if err := c.login(); err != nil {
		c.setState(StateDisconnected)
		return err
	}
	if err := c.fetchEquipment(); err != nil {
		c.setState(StateDisconnected)
		return err
	}

	if c.connectRealtime() {
		c.setState(StateConnected)
	} else {
		log.Warn().Msg("Realtime channel not established, continuing with equipment data only")
		c.setState(StateDegraded)
	}
	return nil
}

// Disconnect drops the realtime channel, forgets the session token and
// closes idle connections. Safe to call multiple times and at any moment,
// in-flight publishes may fail with ErrTransport.
func (c *client) Disconnect() error {
	if c.State() == StateDisconnected {
		// Already disconnected.
		return nil
	}

	if c.mqttClient != nil {
		c.mqttClient.Disconnect(uint(c.options.DisconnectTimeout.Milliseconds()))
		c.mqttClient = nil
	}

	c.userToken = ""
	c.accountId = ""

	// Close all current connections.
	c.httpClient.CloseIdleConnections()

	c.setState(StateDisconnected)
	return nil
}

func (c *client) GetEquipment() (*Equipment, error) {
	return c.registry.equipment(), nil
}

func (c *client) GetWaterHeaters() ([]WaterHeater, error) {
	return c.registry.waterHeaterList(), nil
}

func (c *client) GetWaterHeater(deviceId string) (*WaterHeater, error) {
	return c.registry.waterHeater(deviceId)
}

func (c *client) GetThermostats() ([]Thermostat, error) {
	return c.registry.thermostatList(), nil
}

func (c *client) GetThermostat(deviceId string) (*Thermostat, error) {
	return c.registry.thermostat(deviceId)
}

func (c *client) SetWaterHeaterMode(deviceId string, mode string) error {
	wh, err := c.registry.waterHeater(deviceId)
	if err != nil {
		return err
	}

	index, err := resolveModeIndex(mode, wh.AvailableModes)
	if err != nil {
		return err
	}
	enabled := 0
	if normalizeModeName(mode) != modeOff {
		enabled = 1
	}

	err = c.publishDesired(wh.DeviceId, wh.SerialNumber, map[string]interface{}{
		fieldMode:    index,
		fieldEnabled: enabled,
	})
	if err != nil {
		return err
	}

	// Optimistic update, the device confirms over the reported topic.
	c.registry.updateWaterHeater(wh.DeviceId, func(wh *WaterHeater) {
		wh.Mode = index
		wh.refreshModeName()
		wh.Enabled = enabled == 1
	})
	log.Info().
		Str("deviceId", wh.DeviceId).
		Str("mode", mode).
		Int("index", index).
		Msg("Water heater mode set")
	return nil
}

func (c *client) SetWaterHeaterTemperature(deviceId string, temperature int) error {
	wh, err := c.registry.waterHeater(deviceId)
	if err != nil {
		return err
	}

	// Out of range values are rejected before any network call.
	if temperature < wh.SetpointMin || temperature > wh.SetpointMax {
		return fmt.Errorf("temperature %d out of range [%d, %d]: %w", temperature, wh.SetpointMin, wh.SetpointMax, ErrValidation)
	}

	err = c.publishDesired(wh.DeviceId, wh.SerialNumber, map[string]interface{}{
		fieldSetpoint: temperature,
	})
	if err != nil {
		return err
	}

	c.registry.updateWaterHeater(wh.DeviceId, func(wh *WaterHeater) {
		wh.Setpoint = temperature
	})
	log.Info().
		Str("deviceId", wh.DeviceId).
		Int("temperature", temperature).
		Msg("Water heater setpoint set")
	return nil
}

func (c *client) NotificationSubscribe(id string, callback NotificationCallback) error {
	c.notificationsMutex.Lock()
	defer c.notificationsMutex.Unlock()

	_, exists := c.notificationCallbacks[id]
	if exists {
		return errors.New("Notification callback with id " + id + " already exists")
	}
	c.notificationCallbacks[id] = callback
	return nil
}

func (c *client) NotificationUnsubscribe(id string) error {
	c.notificationsMutex.Lock()
	defer c.notificationsMutex.Unlock()

	_, exists := c.notificationCallbacks[id]
	if !exists {
		return errors.New("Notification callback with id " + id + " does not exist")
	}
	delete(c.notificationCallbacks, id)
	return nil
}

// login performs the auth call and keeps the session token and account id
// for the rest of the session. There is no refresh, an expired token means
// the caller has to reconnect.
func (c *client) login() error {
	response, err := c.postRequest(authPath, c.baseHeaders(), loginRequest{
		Email:    c.options.Email,
		Password: c.options.Password,
	})
	res, err := wrapApiResponse[loginResponse](response, err)
	if err != nil {
		return fmt.Errorf("login failed: %v: %w", err, ErrAuthentication)
	}
	if res.UserToken == "" || res.Options.AccountId == "" {
		return fmt.Errorf("login response missing user token or account id: %w", ErrAuthentication)
	}
	c.userToken = res.UserToken
	c.accountId = res.Options.AccountId

	log.Info().Str("email", c.options.Email).Msg("Logged in to EcoNet")
	return nil
}

// fetchEquipment pulls the location tree and rebuilds the registry from
// the water heater and thermostat entries. Other equipment types are
// ignored.
func (c *client) fetchEquipment() error {
	response, err := c.postRequest(
		fmt.Sprintf(userDataPath, c.options.SystemKey),
		c.authHeaders(),
		map[string]string{"resource": userDataResource},
	)
	res, err := wrapApiResponse[userDataResponse](response, err)
	if err != nil {
		return fmt.Errorf("error fetching equipment: %w", err)
	}

	var waterHeaters []*WaterHeater
	var thermostats []*Thermostat
	for _, loc := range res.Results.Locations {
		for _, raw := range loc.Equipment {
			switch DeviceType(fieldString(raw, keyDeviceType, "")) {
			case DeviceTypeWaterHeater:
				waterHeaters = append(waterHeaters, parseWaterHeater(raw))
			case DeviceTypeThermostat:
				thermostats = append(thermostats, parseThermostat(raw))
			}
		}
	}
	c.registry.reset(waterHeaters, thermostats)

	log.Info().
		Int("waterHeaters", len(waterHeaters)).
		Int("thermostats", len(thermostats)).
		Msg("Equipment catalog fetched")
	return nil
}

// connectRealtime brings up the MQTT connection to the cloud broker and
// subscribes to the reported state topic. Returns false when the broker
// cannot be reached within ConnectTimeout.
func (c *client) connectRealtime() bool {
	broker := fmt.Sprintf("ssl://%s:%d", c.options.MqttHost, c.options.MqttPort)
	// The backend only accepts client ids following the mobile application
	// scheme.
	clientId := fmt.Sprintf("%s%d_android", c.options.Email, time.Now().UnixMilli())

	mqttOptions := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientId).
		SetProtocolVersion(4).
		SetUsername(c.userToken).
		SetPassword(c.options.SystemKey).
		SetKeepAlive(60 * time.Second).
		SetAutoReconnect(false).
		SetOrderMatters(false).
		SetConnectTimeout(c.options.ConnectTimeout).
		SetTLSConfig(&tls.Config{InsecureSkipVerify: true}).
		SetOnConnectHandler(func(client mqtt.Client) {
			topic := fmt.Sprintf(reportedTopic, c.accountId)
			log.Debug().Str("topic", topic).Msg("Subscribing to reported state topic")
			t := client.Subscribe(topic, 0, c.onRealtimeMessage)
			<-t.Done()
			if t.Error() != nil {
				log.Error().Err(t.Error()).Str("topic", topic).Msg("Error subscribing to reported state topic")
			}
		}).
		SetConnectionLostHandler(func(client mqtt.Client, err error) {
			log.Warn().Err(err).Msg("Realtime channel lost, continuing in degraded mode")
			c.setState(StateDegraded)
		})

	c.mqttClient = mqtt.NewClient(mqttOptions)

	t := c.mqttClient.Connect()
	if !t.WaitTimeout(c.options.ConnectTimeout) {
		log.Warn().Str("broker", broker).Msg("Timeout connecting to realtime broker")
		return false
	}
	if t.Error() != nil {
		log.Warn().Err(t.Error()).Str("broker", broker).Msg("Error connecting to realtime broker")
		return false
	}
	return true
}

// onRealtimeMessage merges one reported state payload into the registry.
// Malformed payloads and unknown devices are logged and dropped, a single
// bad message must never take down the sync loop.
func (c *client) onRealtimeMessage(_ mqtt.Client, message mqtt.Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic in realtime message handler")
		}
	}()

	var payload map[string]interface{}
	if err := json.Unmarshal(message.Payload(), &payload); err != nil {
		log.Debug().Err(err).Str("topic", message.Topic()).Msg("Dropping malformed realtime payload")
		return
	}

	notification, ok := c.registry.applyReport(payload)
	if !ok {
		log.Debug().Str("topic", message.Topic()).Msg("Dropping realtime payload for unknown device")
		return
	}
	log.Debug().
		Str("deviceId", notification.DeviceId).
		Strs("fields", notification.Fields).
		Msg("Realtime update merged")

	for _, callback := range c.callbacksSnapshot() {
		callback(notification)
	}
}

// callbacksSnapshot copies the callback list so notifications run without
// holding the mutex.
func (c *client) callbacksSnapshot() []NotificationCallback {
	c.notificationsMutex.Lock()
	defer c.notificationsMutex.Unlock()

	callbacks := make([]NotificationCallback, 0, len(c.notificationCallbacks))
	for _, callback := range c.notificationCallbacks {
		callbacks = append(callbacks, callback)
	}
	return callbacks
}

// publishDesired sends a command on the desired topic and waits for the
// broker acknowledgment. Publishing requires a live realtime channel, in
// degraded mode the command fails without side effects.
func (c *client) publishDesired(deviceId string, serialNumber string, updates map[string]interface{}) error {
	mqttClient := c.mqttClient
	if mqttClient == nil || c.State() != StateConnected {
		return fmt.Errorf("realtime channel not connected: %w", ErrTransport)
	}

	payload := map[string]interface{}{
		keyTransactionId: transactionId(),
		keyDeviceName:    deviceId,
		keySerialNumber:  serialNumber,
	}
	for field, value := range updates {
		payload[field] = value
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error encoding command: %v: %w", err, ErrParse)
	}

	topic := fmt.Sprintf(desiredTopic, c.accountId)
	t := mqttClient.Publish(topic, 1, false, body)
	if !t.WaitTimeout(c.options.PublishTimeout) {
		return fmt.Errorf("timeout publishing command to '%s': %w", topic, ErrTransport)
	}
	if t.Error() != nil {
		return fmt.Errorf("error publishing command: %v: %w", t.Error(), ErrTransport)
	}

	log.Debug().Str("topic", topic).Str("body", string(body)).Msg("Command published")
	return nil
}

// transactionId follows the stamp format of the mobile application.
func transactionId() string {
	return "ANDROID_" + time.Now().Format("2006-01-02T15:04:05")
}

func (c *client) baseHeaders() map[string]string {
	return map[string]string{
		"Content-Type":            "application/json; charset=UTF-8",
		"ClearBlade-SystemKey":    c.options.SystemKey,
		"ClearBlade-SystemSecret": c.options.SystemSecret,
	}
}

func (c *client) authHeaders() map[string]string {
	headers := c.baseHeaders()
	headers["ClearBlade-UserToken"] = c.userToken
	return headers
}

// postRequest performs a POST against the REST API and parses the JSON
// reply into a generic map for wrapApiResponse to decode.
func (c *client) postRequest(path string, headers map[string]string, body interface{}) (interface{}, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error encoding request body: %v: %w", err, ErrParse)
	}

	callUrl := c.options.RestUrl + path
	request, err := http.NewRequest(http.MethodPost, callUrl, strings.NewReader(string(jsonBody)))
	if err != nil {
		return nil, fmt.Errorf("error building the request: %v: %w", err, ErrTransport)
	}
	for name, value := range headers {
		request.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("error doing the request: %v: %w", err, ErrTransport)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading the response: %v: %w", err, ErrTransport)
	}

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("error response from server, httpStatus=%d: %s: %w", resp.StatusCode, responseBody, ErrTransport)
	}

	log.Debug().
		Str("url", callUrl).
		Str("status", resp.Status).
		Msg("Response received")
	log.Trace().
		Str("body", string(responseBody)).
		Msg("Response body")

	var jsonResponse map[string]interface{}
	if err := json.Unmarshal(responseBody, &jsonResponse); err != nil {
		return nil, fmt.Errorf("error parsing response for path %s: %v: %w", path, err, ErrParse)
	}
	return jsonResponse, nil
}
