package econet

import (
	"fmt"
	"time"
)

// Usage report query constants of the dynamicAction endpoint.
const (
	usageActionReport = "waterheaterUsageReportView"
	usageTypeEnergy   = "energyUsage"
	usageTypeWater    = "waterUsage"
	usageTimeFormat   = "2006-01-02T15:04:05.000"
)

// GetEnergyUsage queries today's energy usage report for a water heater.
func (c *client) GetEnergyUsage(deviceId string) (*UsageReport, error) {
	wh, err := c.registry.waterHeater(deviceId)
	if err != nil {
		return nil, err
	}

	body, err := c.fetchUsage(wh, usageTypeEnergy)
	if err != nil {
		return nil, err
	}
	return &UsageReport{
		DeviceId: wh.DeviceId,
		Message:  body.Message,
		Data:     body.Data,
	}, nil
}

// GetWaterUsage queries today's water usage report for a water heater. The
// backend sends no message on water reports.
func (c *client) GetWaterUsage(deviceId string) (*UsageReport, error) {
	wh, err := c.registry.waterHeater(deviceId)
	if err != nil {
		return nil, err
	}

	body, err := c.fetchUsage(wh, usageTypeWater)
	if err != nil {
		return nil, err
	}
	return &UsageReport{
		DeviceId: wh.DeviceId,
		Data:     body.Data,
	}, nil
}

// fetchUsage runs one usage report query spanning local midnight to now.
func (c *client) fetchUsage(wh *WaterHeater, usageType string) (*usageBody, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	response, err := c.postRequest(
		fmt.Sprintf(dynamicActionPath, c.options.SystemKey),
		c.authHeaders(),
		usageRequest{
			Action:       usageActionReport,
			DeviceName:   wh.DeviceId,
			SerialNumber: wh.SerialNumber,
			StartDate:    start.Format(usageTimeFormat),
			EndDate:      now.Format(usageTimeFormat),
			UsageType:    usageType,
		},
	)
	res, err := wrapApiResponse[usageResponse](response, err)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s report: %w", usageType, err)
	}

	if usageType == usageTypeWater {
		return &res.Results.WaterUsage, nil
	}
	return &res.Results.EnergyUsage, nil
}
