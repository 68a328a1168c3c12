package projection

import (
	"math"
)

// GRS80 ellipsoid and UTM grid constants.
const (
	semiMajorAxis      = 6378137.0
	inverseFlattening  = 298.257222101
	scaleFactor        = 0.9996
	falseEasting       = 500000.0
	southFalseNorthing = 10000000.0
	zoneWidth          = 6.0
)

var (
	flattening    = 1 / inverseFlattening
	eccentricity2 = 2*flattening - flattening*flattening
	semiMinorAxis = semiMajorAxis * (1 - flattening)
	thirdFlat     = (semiMajorAxis - semiMinorAxis) / (semiMajorAxis + semiMinorAxis)
)

// Zone returns the UTM zone (1..60) holding the longitude.
func Zone(lon float64) int {
	zone := int(math.Floor((lon+180)/zoneWidth)) + 1
	if zone > 60 {
		zone = 60
	}
	if zone < 1 {
		zone = 1
	}
	return zone
}

// CentralMeridian of a UTM zone, in degrees.
func CentralMeridian(zone int) float64 {
	return float64(zone)*zoneWidth - 183
}

// FalseNorthing for the hemisphere.
func FalseNorthing(south bool) float64 {
	if south {
		return southFalseNorthing
	}
	return 0
}

// Redfearn projects a latitude/longitude pair onto the grid of the given zone
// using Redfearn's series.
func Redfearn(lat, lon float64, zone int, south bool) (easting, northing float64) {
	e2 := eccentricity2
	e4 := e2 * e2
	e6 := e4 * e2

	phi := lat * math.Pi / 180
	sinphi := math.Sin(phi)
	cosphi := math.Cos(phi)
	cosphi3 := cosphi * cosphi * cosphi
	cosphi5 := cosphi3 * cosphi * cosphi
	cosphi7 := cosphi5 * cosphi * cosphi

	t := math.Tan(phi)
	t2 := t * t
	t4 := t2 * t2
	t6 := t4 * t2

	rho := semiMajorAxis * (1 - e2) / math.Pow(1-e2*sinphi*sinphi, 1.5)
	nu := semiMajorAxis / math.Sqrt(1-e2*sinphi*sinphi)
	psi := nu / rho
	psi2 := psi * psi
	psi3 := psi2 * psi
	psi4 := psi3 * psi

	// Meridian distance.
	a0 := 1 - e2/4 - 3*e4/64 - 5*e6/256
	a2 := 3.0 / 8 * (e2 + e4/4 + 15*e6/128)
	a4 := 15.0 / 256 * (e4 + 3*e6/4)
	a6 := 35 * e6 / 3072
	m := semiMajorAxis * (a0*phi - a2*math.Sin(2*phi) + a4*math.Sin(4*phi) - a6*math.Sin(6*phi))

	omega := (lon - CentralMeridian(zone)) * math.Pi / 180
	omega2 := omega * omega
	omega3 := omega2 * omega
	omega4 := omega2 * omega2
	omega5 := omega4 * omega
	omega6 := omega4 * omega2
	omega7 := omega6 * omega
	omega8 := omega4 * omega4

	n1 := nu * sinphi * cosphi * omega2 / 2
	n2 := nu * sinphi * cosphi3 * (4*psi2 + psi - t2) * omega4 / 24
	n3 := nu * sinphi * cosphi5 *
		(8*psi4*(11-24*t2) - 28*psi3*(1-6*t2) + psi2*(1-32*t2) - psi*2*t2 + t4 - t2) * omega6 / 720
	n4 := nu * sinphi * cosphi7 * (1385 - 3111*t2 + 543*t4 - t6) * omega8 / 40320
	northing = FalseNorthing(south) + scaleFactor*(m+n1+n2+n3+n4)

	e1 := nu * omega * cosphi
	e2t := nu * cosphi3 * (psi - t2) * omega3 / 6
	e3 := nu * cosphi5 * (4*psi3*(1-6*t2) + psi2*(1+8*t2) - 2*psi*t2 + t4) * omega5 / 120
	e4t := nu * cosphi7 * (61 - 479*t2 + 179*t4 - t6) * omega7 / 5040
	easting = falseEasting + scaleFactor*(e1+e2t+e3+e4t)

	return easting, northing
}

// InverseRedfearn converts grid coordinates of a zone back to latitude/longitude.
func InverseRedfearn(northing, easting float64, zone int, south bool) (lat, lon float64) {
	e2 := eccentricity2
	n := thirdFlat
	n2 := n * n
	n3 := n2 * n
	n4 := n2 * n2

	g := semiMajorAxis * (1 - n) * (1 - n2) * (1 + 9*n2/4 + 225*n4/64) * math.Pi / 180

	m := (northing - FalseNorthing(south)) / scaleFactor
	sigma := m * math.Pi / (180 * g)

	// Foot point latitude.
	phi1 := sigma +
		(3*n/2-27*n3/32)*math.Sin(2*sigma) +
		(21*n2/16-55*n4/32)*math.Sin(4*sigma) +
		(151*n3/96)*math.Sin(6*sigma) +
		(1097*n4/512)*math.Sin(8*sigma)

	sinphi := math.Sin(phi1)
	t := math.Tan(phi1)
	t2 := t * t
	t4 := t2 * t2
	t6 := t4 * t2

	rho := semiMajorAxis * (1 - e2) / math.Pow(1-e2*sinphi*sinphi, 1.5)
	nu := semiMajorAxis / math.Sqrt(1-e2*sinphi*sinphi)
	psi := nu / rho
	psi2 := psi * psi
	psi3 := psi2 * psi
	psi4 := psi3 * psi

	ep := easting - falseEasting
	x := ep / (scaleFactor * nu)
	x3 := x * x * x
	x5 := x3 * x * x
	x7 := x5 * x * x

	tk := t / (scaleFactor * rho)
	l1 := tk * x * ep / 2
	l2 := tk * ep * x3 / 24 * (-4*psi2 + 9*psi*(1-t2) + 12*t2)
	l3 := tk * ep * x5 / 720 *
		(8*psi4*(11-24*t2) - 12*psi3*(21-71*t2) + 15*psi2*(15-98*t2+15*t4) + 180*psi*(5*t2-3*t4) + 360*t4)
	l4 := tk * ep * x7 / 40320 * (1385 + 3633*t2 + 4095*t4 + 1575*t6)
	phi := phi1 - l1 + l2 - l3 + l4

	sec := 1 / math.Cos(phi1)
	o1 := x * sec
	o2 := x3 * sec / 6 * (psi + 2*t2)
	o3 := x5 * sec / 120 * (-4*psi3*(1-6*t2) + psi2*(9-68*t2) + 72*psi*t2 + 24*t4)
	o4 := x7 * sec / 5040 * (61 + 662*t2 + 1320*t4 + 720*t6)
	lambda := CentralMeridian(zone)*math.Pi/180 + o1 - o2 + o3 - o4

	return phi * 180 / math.Pi, lambda * 180 / math.Pi
}
