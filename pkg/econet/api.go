package econet

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Paths of the ClearBlade REST API, relative to the base url. The code
// paths are parameterized by the system key.
const (
	authPath          = "/user/auth"
	userDataPath      = "/code/%s/getUserDataForApp"
	dynamicActionPath = "/code/%s/dynamicAction"
)

// Resource tag the mobile application sends on the user data call.
const userDataResource = "friedrich"

// loginRequest is the body sent to the auth endpoint.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse holds the session credentials returned on a successful
// login. The account id is needed to build the MQTT topic names.
type loginResponse struct {
	UserToken string       `mapstructure:"user_token"`
	Options   loginOptions `mapstructure:"options"`
}

type loginOptions struct {
	AccountId string `mapstructure:"account_id"`
}

// userDataResponse is the catalog returned by getUserDataForApp. Devices
// come as free-form maps because most of their keys follow the dual field
// encoding, see fields.go.
type userDataResponse struct {
	Results userDataResults `mapstructure:"results"`
}

type userDataResults struct {
	Locations []location `mapstructure:"locations"`
}

type location struct {
	// The misspelled key is the one the EcoNet backend actually sends.
	Equipment []map[string]interface{} `mapstructure:"equiptments"`
}

// usageRequest is the dynamicAction body for usage report queries. All
// field names are dictated by the backend.
type usageRequest struct {
	Action       string `json:"ACTION"`
	DeviceName   string `json:"device_name"`
	SerialNumber string `json:"serial_number"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	UsageType    string `json:"usage_type"`
}

type usageResponse struct {
	Results usageResults `mapstructure:"results"`
}

type usageResults struct {
	EnergyUsage usageBody `mapstructure:"energy_usage"`
	WaterUsage  usageBody `mapstructure:"water_usage"`
}

type usageBody struct {
	Message string        `mapstructure:"message"`
	Data    []interface{} `mapstructure:"data"`
}

// wrapApiResponse takes a generic response interface and maps it to the
// given structure. This is used to decode the free-form JSON replies from
// the REST API into explicit structs.
func wrapApiResponse[T any](response interface{}, err error) (*T, error) {
	// Handle original error coming from the response.
	if err != nil {
		return nil, err
	}

	// Decode the response into the given struct type.
	res := new(T)
	config := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           res,
		WeaklyTypedInput: true,
		ErrorUnset:       false,
	}
	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return nil, fmt.Errorf("error building decoder: %v: %w", err, ErrParse)
	}
	if err = decoder.Decode(response); err != nil {
		return nil, fmt.Errorf("error decoding response: %v: %w", err, ErrParse)
	}
	return res, nil
}
