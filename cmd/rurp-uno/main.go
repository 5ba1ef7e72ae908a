//go:build tinygo && avr

package main

import (
	"fmt"
	"time"

	"github.com/mbalug7/go-rurp/pkg/config"
	"github.com/mbalug7/go-rurp/pkg/rurp"
	"github.com/mbalug7/go-rurp/pkg/uno"
)

func main() {
	hw := uno.NewHWHandler()

	// the board keeps no config file, the divider of the stock shield is used
	shield := rurp.New(hw, config.Static(config.Default()), rurp.WithReadyTimeout(0))
	if err := shield.Setup(); err != nil {
		// nothing can report this, the link is not up
		for {
			time.Sleep(time.Second)
		}
	}
	shield.Log("INFO", fmt.Sprintf("shield %s ready", shield.HardwareRevision()))

	buf := make([]byte, 1)
	for {
		// ReadBytes waits up to the read timeout for a request
		n, err := shield.ReadBytes(buf)
		if err != nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if n == 0 {
			continue
		}
		switch buf[0] {
		case 'v':
			v, err := shield.ReadAveragedVoltage()
			if err != nil {
				shield.Log("ERROR", err.Error())
				continue
			}
			shield.Log("INFO", fmt.Sprintf("vpp %.2f V", v))
		case 'r':
			shield.Log("INFO", fmt.Sprintf("revision %s (detected %s)", shield.HardwareRevision(), shield.PhysicalHardwareRevision()))
		}
	}
}
