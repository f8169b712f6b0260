package badapi

type Root interface {
	SetColor(rgb uint8) int32
}
