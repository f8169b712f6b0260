// Package sapapi declares a small slice of a structural analysis server's
// Automation surface for table introspection.
package sapapi

import "github.com/chazu/oapi/byref"

type Root interface {
	InitializeNewModel(units int) int32
	ApplicationExit(fileSave bool) int32
}

type PropFrame interface {
	GetNameList(numberNames byref.Out[int], myName byref.ArrayOut[string]) int32
	SetRectangle(name string, matProp string, t3 float64, t2 float64) int32
}

type Results_Setup interface {
	DeselectAllCasesAndCombosForOutput() int32
	SetCaseSelectedForOutput(name string, selected bool) int32
}

type FrameObj interface {
	GetPoints(name string, point1 *byref.Cell[string], point2 *byref.Cell[string]) int32
	GetSection(name string, propName byref.Out[string], sAuto byref.Out[string]) int32
	SetLoadDistributed(name string, values []float64, dist *byref.Array[float64]) int32
}

// internal is not exported and is skipped.
type internal interface {
	Hidden() int32
}

// Units is not an interface and is skipped.
type Units int
