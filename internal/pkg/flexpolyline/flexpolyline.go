// Package flexpolyline implements the "flexible polyline" line-geometry
// encoding: base64-style characters carrying 5-bit varint chunks, a header
// with the coordinate precision and optional third dimension, and
// zigzag-encoded per-axis deltas. Routing providers ship section geometry in
// this format at precision 5, usually with an (unused here) altitude channel.
package flexpolyline

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Point is a decoded coordinate. The third dimension, when present in the
// input, is decoded and discarded.
type Point struct {
	Lat float64
	Lon float64
}

// ThirdDim identifies the meaning of the third coordinate channel.
type ThirdDim uint

const (
	ThirdDimAbsent    ThirdDim = 0
	ThirdDimLevel     ThirdDim = 1
	ThirdDimAltitude  ThirdDim = 2
	ThirdDimElevation ThirdDim = 3
)

const formatVersion = 1

const encodingTable = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

var decodingTable [128]int8

func init() {
	for i := range decodingTable {
		decodingTable[i] = -1
	}
	for i := 0; i < len(encodingTable); i++ {
		decodingTable[encodingTable[i]] = int8(i)
	}
}

var (
	errTruncated   = errors.New("flexpolyline: truncated input")
	errBadChar     = errors.New("flexpolyline: invalid character")
	errBadVersion  = errors.New("flexpolyline: unsupported format version")
	errDanglingLat = errors.New("flexpolyline: latitude without longitude")
)

// Decode parses an encoded polyline into coordinates. Any error leaves no
// partial result; callers treat a failed section as empty.
func Decode(encoded string) ([]Point, error) {
	if encoded == "" {
		return nil, errTruncated
	}

	pos := 0
	next := func() (uint64, error) {
		var value uint64
		var shift uint
		for {
			if pos >= len(encoded) {
				return 0, errTruncated
			}
			c := encoded[pos]
			if c >= 128 || decodingTable[c] < 0 {
				return 0, fmt.Errorf("%w %q at offset %d", errBadChar, c, pos)
			}
			chunk := uint64(decodingTable[c])
			pos++
			value |= (chunk & 0x1f) << shift
			if chunk&0x20 == 0 {
				return value, nil
			}
			shift += 5
		}
	}

	version, err := next()
	if err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, fmt.Errorf("%w %d", errBadVersion, version)
	}

	header, err := next()
	if err != nil {
		return nil, err
	}
	precision := header & 0x0f
	dim := ThirdDim((header >> 4) & 0x07)

	factor := math.Pow10(int(precision))

	var points []Point
	var lat, lon, z int64
	for pos < len(encoded) {
		dLat, err := next()
		if err != nil {
			return nil, err
		}
		lat += unzigzag(dLat)

		if pos >= len(encoded) {
			return nil, errDanglingLat
		}
		dLon, err := next()
		if err != nil {
			return nil, err
		}
		lon += unzigzag(dLon)

		if dim != ThirdDimAbsent {
			// Altitude/level channel: parsed to keep the stream aligned,
			// not surfaced.
			dz, err := next()
			if err != nil {
				return nil, err
			}
			z += unzigzag(dz)
			_ = z
		}

		points = append(points, Point{
			Lat: float64(lat) / factor,
			Lon: float64(lon) / factor,
		})
	}

	return points, nil
}

// Encode produces an encoded polyline at the given decimal precision with no
// third dimension.
func Encode(points []Point, precision uint) (string, error) {
	if precision > 15 {
		return "", fmt.Errorf("flexpolyline: precision %d out of range", precision)
	}

	var sb strings.Builder
	appendVarint(&sb, formatVersion)
	appendVarint(&sb, uint64(precision)&0x0f)

	factor := math.Pow10(int(precision))
	var prevLat, prevLon int64
	for _, p := range points {
		lat := int64(math.Round(p.Lat * factor))
		lon := int64(math.Round(p.Lon * factor))
		appendVarint(&sb, zigzag(lat-prevLat))
		appendVarint(&sb, zigzag(lon-prevLon))
		prevLat, prevLon = lat, lon
	}

	return sb.String(), nil
}

func appendVarint(sb *strings.Builder, v uint64) {
	for v >= 0x20 {
		sb.WriteByte(encodingTable[(v&0x1f)|0x20])
		v >>= 5
	}
	sb.WriteByte(encodingTable[v])
}

func zigzag(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func unzigzag(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}
