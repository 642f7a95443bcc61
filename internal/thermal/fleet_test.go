package thermal

import "testing"

func TestFleetGetAllThermalStatuses(t *testing.T) {
	pid := NewPID(1, 0, 0, 100, -100, 100)
	sensor := &constSensor{celsius: 42}
	actuator := &noopActuator{}
	bridge := NewHBridge(actuator, actuator)
	safety := NewSafetyMonitor(200, 400, 10e9)

	reg := NewRegulator("cell-a", pid, bridge, sensor, safety, Limits{MaxHeatDuty: 100, MaxCoolDuty: 100, Epsilon: 0.01}, nil)
	reg.SetSetpoint(50)
	if _, err := reg.Tick(1e9); err != nil {
		t.Fatalf("tick: %v", err)
	}

	fleet := Fleet{"cell-a": reg}
	statuses := fleet.GetAllThermalStatuses()
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(statuses))
	}
	if statuses[0].RegulatorID != "cell-a" || statuses[0].Setpoint != 50 || statuses[0].LastTemperature != 42 {
		t.Fatalf("unexpected status: %+v", statuses[0])
	}
}

type constSensor struct{ celsius float64 }

func (s *constSensor) ReadCelsius() (float64, error) { return s.celsius, nil }

type noopActuator struct{}

func (noopActuator) SetDirection(Direction) error { return nil }
func (noopActuator) SetDuty(float64) error        { return nil }
