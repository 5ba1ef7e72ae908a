package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mbalug7/go-rurp/pkg/common"
	"github.com/mbalug7/go-rurp/pkg/config"
	"github.com/mbalug7/go-rurp/pkg/hal"
	"github.com/mbalug7/go-rurp/pkg/rurp"
)

func main() {
	tty := flag.String("tty", "/dev/ttyS0", "serial port of the host link")
	chip := flag.String("chip", "gpiochip0", "GPIO chip name, 5.5+ Linux kernel needed")
	cfgPath := flag.String("config", "", "JSON config file, defaults are used when empty")
	iio := flag.String("iio", "/sys/bus/iio/devices/iio:device0", "IIO device of the ADC")
	flag.Parse()

	logger := log.New(os.Stderr, "rurp: ", log.LstdFlags)

	var cfg config.Accessor = config.Static(config.Default())
	if *cfgPath != "" {
		f, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = f
	}

	// create the hardware handler
	// D0..D7 -> GPIO 4..11
	// strobes -> GPIO 12, 13, 16
	// OE, CE, RW -> GPIO 17, 18, 19
	// revision strap -> GPIO 20, sense input -> GPIO 21
	hw, err := common.NewHWHandler(*chip, common.Pins{
		Data:          [8]int{4, 5, 6, 7, 8, 9, 10, 11},
		StrobeLow:     12,
		StrobeHigh:    13,
		StrobeControl: 16,
		OutputEnable:  17,
		ChipEnable:    18,
		ReadWrite:     19,
		RevisionStrap: 20,
		Sense:         21,
	}, *tty, common.ADCChannels{
		Reference: *iio + "/in_voltage0_raw",
		Sense:     *iio + "/in_voltage1_raw",
		Bits:      12,
	})
	if err != nil {
		log.Fatal(err)
	}

	shield := rurp.New(hw, cfg, rurp.WithLogger(logger))
	err = shield.Setup()
	if err != nil {
		log.Fatal(err)
	}
	logger.Printf("hardware revision %s (detected %s)", shield.HardwareRevision(), shield.PhysicalHardwareRevision())

	vpp, err := shield.ReadAveragedVoltage()
	if err != nil {
		logger.Printf("failed to read input voltage: %s", err)
	} else {
		shield.Log("INFO", "input voltage measured")
		logger.Printf("input voltage %.2f V", vpp)
	}

	// select address 0x0000 with the chip enabled and read one byte
	err = shield.EnterProgrammerMode()
	if err != nil {
		log.Fatal(err)
	}
	for _, w := range []struct {
		reg   hal.RegAddress
		value uint8
	}{
		{hal.AddressLow, 0x00},
		{hal.AddressHigh, 0x00},
		{hal.Control, uint8(rurp.ReadWrite)},
	} {
		if err := shield.WriteRegister(w.reg, w.value); err != nil {
			logger.Printf("failed to write %s: %s", w.reg, err)
		}
	}
	if err := shield.SetDataAsInput(); err != nil {
		logger.Printf("failed to release data bus: %s", err)
	}
	_ = shield.SetControlLine(hal.LineChipEnable, false)
	_ = shield.SetControlLine(hal.LineOutputEnable, false)
	b, err := shield.ReadDataBus()
	if err != nil {
		logger.Printf("failed to read data bus: %s", err)
	} else {
		logger.Printf("session %s read %#02x", shield.Session(), b)
	}
	_ = shield.SetControlLine(hal.LineOutputEnable, true)
	_ = shield.SetControlLine(hal.LineChipEnable, true)
	_ = shield.SetDataAsOutput()

	err = shield.EnterCommunicationMode()
	if err != nil {
		log.Fatal(err)
	}
	shield.Log("INFO", "ready")

	signalInterruptChan := make(chan os.Signal, 1)
	signal.Notify(signalInterruptChan, os.Interrupt, syscall.SIGTERM)
	<-signalInterruptChan
	err = hw.Close()
	if err != nil {
		logger.Printf("failed to close shield hardware: %s", err.Error())
	}
}
