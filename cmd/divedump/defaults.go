package main

import "github.com/divewire/godive/internal/constants"

func oceanicSerialDefaults() constants.SerialDefaults { return constants.VTProSerialDefaults }
func suuntoSerialDefaults() constants.SerialDefaults  { return constants.SuuntoSerialDefaults }
func aladinSerialDefaults() constants.SerialDefaults  { return constants.AladinSerialDefaults }
func nemoSerialDefaults() constants.SerialDefaults    { return constants.NemoSerialDefaults }
