package emath

// Some basic affine transformations, used in image registration

import(
	"fmt"
	"math"
	"golang.org/x/image/math/f64"  // Will be "image/math/f64" at some point, hopefully make this file redundant
)

// An Aff3 maps a 2D point in one pixel coordinate frame to a point in
// another. Row major, bottom row implicitly [0 0 1]. Use a local type
// so we can hang methods off it.
type Aff3 f64.Aff3

// Cut-n-pasted from image@0.7.0/draw/scale:matMul
func (p Aff3)Mult(q Aff3) Aff3 {
	return Aff3{
		p[3*0+0]*q[3*0+0] + p[3*0+1]*q[3*1+0],
		p[3*0+0]*q[3*0+1] + p[3*0+1]*q[3*1+1],
		p[3*0+0]*q[3*0+2] + p[3*0+1]*q[3*1+2] + p[3*0+2],
		p[3*1+0]*q[3*0+0] + p[3*1+1]*q[3*1+0],
		p[3*1+0]*q[3*0+1] + p[3*1+1]*q[3*1+1],
		p[3*1+0]*q[3*0+2] + p[3*1+1]*q[3*1+2] + p[3*1+2],
	}
}

func Identity() Aff3 {
	return Aff3{1, 0, 0,   0, 1, 0}
}

func (m1 Aff3)Translate(tx, ty float64) Aff3 {
	return m1.Mult(Aff3{1, 0, tx,   0, 1, ty})
}

func (m1 Aff3)Rotate(thetaDeg float64) Aff3 {
	cosTheta := math.Cos(thetaDeg * math.Pi / 180.0)
	sinTheta := math.Sin(thetaDeg * math.Pi / 180.0)
	return m1.Mult(Aff3{cosTheta, -1*sinTheta, 0,    sinTheta, cosTheta, 0})
}

func RotateAbout(thetaDeg, x, y float64) Aff3 {
	// Remember they compose back to front - rightmost operations performed first
	return Identity().Translate(x, y).Rotate(thetaDeg).Translate(-1*x, -1*y)
}

// Apply maps the point (x,y) through the transform.
func (m Aff3)Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// Det is the determinant of the linear (non-translation) part.
func (m Aff3)Det() float64 {
	return m[0]*m[4] - m[1]*m[3]
}

// Invert returns the inverse transform. The second return is false
// when the linear part is singular and no inverse exists.
func (m Aff3)Invert() (Aff3, bool) {
	det := m.Det()
	if math.Abs(det) < 1e-12 {
		return Identity(), false
	}
	a, b, c := m[0], m[1], m[2]
	d, e, f := m[3], m[4], m[5]
	return Aff3{
		 e/det, -b/det, (b*f - c*e)/det,
		-d/det,  a/det, (c*d - a*f)/det,
	}, true
}

func (m Aff3)String() string {
	return fmt.Sprintf("[%9.4f, %9.4f, %9.4f / %9.4f, %9.4f, %9.4f]",
		m[0], m[1], m[2], m[3], m[4], m[5])
}
