package sx1261

import "fmt"

// OpCode selects the command an SX1261/SX1250 executes.
type OpCode byte

// SX126x command set.
const (
	OpResetStats            OpCode = 0x00
	OpClearIrqStatus        OpCode = 0x02
	OpClearDeviceErrors     OpCode = 0x07
	OpSetDioIrqParams       OpCode = 0x08
	OpWriteRegister         OpCode = 0x0D
	OpWriteBuffer           OpCode = 0x0E
	OpGetStats              OpCode = 0x10
	OpGetPacketType         OpCode = 0x11
	OpGetIrqStatus          OpCode = 0x12
	OpGetRxBufferStatus     OpCode = 0x13
	OpGetPacketStatus       OpCode = 0x14
	OpGetRssiInst           OpCode = 0x15
	OpGetDeviceErrors       OpCode = 0x17
	OpReadRegister          OpCode = 0x1D
	OpReadBuffer            OpCode = 0x1E
	OpSetStandby            OpCode = 0x80
	OpSetRx                 OpCode = 0x82
	OpSetTx                 OpCode = 0x83
	OpSetSleep              OpCode = 0x84
	OpSetRfFrequency        OpCode = 0x86
	OpSetCadParams          OpCode = 0x88
	OpCalibrate             OpCode = 0x89
	OpSetPacketType         OpCode = 0x8A
	OpSetModulationParams   OpCode = 0x8B
	OpSetPacketParams       OpCode = 0x8C
	OpSetTxParams           OpCode = 0x8E
	OpSetBufferBaseAddress  OpCode = 0x8F
	OpSetRxTxFallbackMode   OpCode = 0x93
	OpSetRxDutyCycle        OpCode = 0x94
	OpSetPaConfig           OpCode = 0x95
	OpSetRegulatorMode      OpCode = 0x96
	OpSetDio3AsTcxoCtrl     OpCode = 0x97
	OpCalibrateImage        OpCode = 0x98
	OpSetDio2AsRfSwitchCtrl OpCode = 0x9D
	OpStopTimerOnPreamble   OpCode = 0x9F
	OpSetLoRaSymbNumTimeout OpCode = 0xA0
	OpGetStatus             OpCode = 0xC0
	OpSetFs                 OpCode = 0xC1
	OpSetCad                OpCode = 0xC5
	OpSetTxContinuousWave   OpCode = 0xD1
	OpSetTxInfinitePreamble OpCode = 0xD2
)

var opCodeNames = map[OpCode]string{
	OpResetStats:            "ResetStats",
	OpClearIrqStatus:        "ClearIrqStatus",
	OpClearDeviceErrors:     "ClearDeviceErrors",
	OpSetDioIrqParams:       "SetDioIrqParams",
	OpWriteRegister:         "WriteRegister",
	OpWriteBuffer:           "WriteBuffer",
	OpGetStats:              "GetStats",
	OpGetPacketType:         "GetPacketType",
	OpGetIrqStatus:          "GetIrqStatus",
	OpGetRxBufferStatus:     "GetRxBufferStatus",
	OpGetPacketStatus:       "GetPacketStatus",
	OpGetRssiInst:           "GetRssiInst",
	OpGetDeviceErrors:       "GetDeviceErrors",
	OpReadRegister:          "ReadRegister",
	OpReadBuffer:            "ReadBuffer",
	OpSetStandby:            "SetStandby",
	OpSetRx:                 "SetRx",
	OpSetTx:                 "SetTx",
	OpSetSleep:              "SetSleep",
	OpSetRfFrequency:        "SetRfFrequency",
	OpSetCadParams:          "SetCadParams",
	OpCalibrate:             "Calibrate",
	OpSetPacketType:         "SetPacketType",
	OpSetModulationParams:   "SetModulationParams",
	OpSetPacketParams:       "SetPacketParams",
	OpSetTxParams:           "SetTxParams",
	OpSetBufferBaseAddress:  "SetBufferBaseAddress",
	OpSetRxTxFallbackMode:   "SetRxTxFallbackMode",
	OpSetRxDutyCycle:        "SetRxDutyCycle",
	OpSetPaConfig:           "SetPaConfig",
	OpSetRegulatorMode:      "SetRegulatorMode",
	OpSetDio3AsTcxoCtrl:     "SetDio3AsTcxoCtrl",
	OpCalibrateImage:        "CalibrateImage",
	OpSetDio2AsRfSwitchCtrl: "SetDio2AsRfSwitchCtrl",
	OpStopTimerOnPreamble:   "StopTimerOnPreamble",
	OpSetLoRaSymbNumTimeout: "SetLoRaSymbNumTimeout",
	OpGetStatus:             "GetStatus",
	OpSetFs:                 "SetFs",
	OpSetCad:                "SetCad",
	OpSetTxContinuousWave:   "SetTxContinuousWave",
	OpSetTxInfinitePreamble: "SetTxInfinitePreamble",
}

func (op OpCode) String() string {
	if name, ok := opCodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OpCode(0x%02X)", byte(op))
}

// OpCodes returns every named op-code, in no particular order.
func OpCodes() []OpCode {
	ops := make([]OpCode, 0, len(opCodeNames))
	for op := range opCodeNames {
		ops = append(ops, op)
	}
	return ops
}
