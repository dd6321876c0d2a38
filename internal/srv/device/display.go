package device

import (
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

var hostInitOnce sync.Once

// NewDisplay wraps one physical SSD1306 OLED on the named I2C bus, or a
// simulated window when simulationMode is set. A display lives for the whole
// program run once started.
func NewDisplay(name string, busName string, width, height int, simulationMode bool) *Display {
	return &Display{
		name:           name,
		busName:        busName,
		width:          width,
		height:         height,
		simulationMode: simulationMode,
		on:             true,
		lastImg:        image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

func (d *Display) Name() string {
	return d.name
}

func (d *Display) Start() error {
	logrus.Infof("Start display device %s", d.name)

	if d.simulationMode {
		d.startSimulation()
		return nil
	}

	var hostErr error
	hostInitOnce.Do(func() {
		_, hostErr = host.Init()
	})
	if hostErr != nil {
		return fmt.Errorf("unable to initialize periph host: %w", hostErr)
	}

	bus, err := i2creg.Open(d.busName)
	if err != nil {
		return fmt.Errorf("unable to open i2c bus %q: %w", d.busName, err)
	}
	d.i2cBus = bus

	oled, err := ssd1306.NewI2C(bus, &ssd1306.Opts{W: d.width, H: d.height, Sequential: true})
	if err != nil {
		d.i2cBus.Close()
		return fmt.Errorf("unable to initialize oled display %s: %w", d.name, err)
	}
	d.oledDisplay = oled
	d.oledDisplay.SetContrast(1)

	return nil
}

func (d *Display) Stop() {
	logrus.Infof("Stop display device %s", d.name)

	if d.simulationMode {
		d.closeSimulationWindow()
		return
	}

	d.oledLock.Lock()
	defer d.oledLock.Unlock()
	if d.oledDisplay != nil {
		d.oledDisplay.Halt()
	}
	if d.i2cBus != nil {
		d.i2cBus.Close()
	}
}

// Draw pushes a complete frame to the device. The caller must not mutate img
// afterwards.
func (d *Display) Draw(img image.Image) error {
	d.lock.Lock()
	d.lastImg = img
	on := d.on
	d.lock.Unlock()

	if !on {
		return nil
	}

	if d.simulationMode {
		d.invalidateSimulationWindow()
		return nil
	}

	d.oledLock.Lock()
	defer d.oledLock.Unlock()
	return d.oledDisplay.Draw(d.oledDisplay.Bounds(), img, image.Point{})
}

func (d *Display) SetOff() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.setOff()
}

func (d *Display) setOff() {
	d.on = false
	if !d.simulationMode {
		d.oledLock.Lock()
		d.oledDisplay.Halt()
		d.oledLock.Unlock()
	}
}

func (d *Display) SetOn() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.setOn()
}

func (d *Display) setOn() {
	d.on = true
	if d.simulationMode {
		d.invalidateSimulationWindow()
	} else {
		d.oledLock.Lock()
		// Halt() powered the panel down, contrast write forces it back on
		lastImg := d.lastImg
		d.oledDisplay.SetContrast(1)
		d.oledDisplay.Draw(d.oledDisplay.Bounds(), lastImg, image.Point{})
		d.oledLock.Unlock()
	}
}

func (d *Display) Switch() bool {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.on {
		d.setOff()
	} else {
		d.setOn()
	}

	return d.on
}

func (d *Display) IsOn() bool {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.on
}
