// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package game

import "gonum.org/v1/gonum/mat"

// Frobenius returns ‖a - b‖_F, the ground cost of the Wasserstein ball.
func Frobenius(a, b mat.Matrix) float64 {
	var d mat.Dense
	d.Sub(a, b)
	return mat.Norm(&d, 2)
}

// DistanceMatrix returns the len(us) × len(nominals) matrix of Frobenius distances.
func DistanceMatrix(us, nominals []*mat.Dense) *mat.Dense {
	if len(us) == 0 || len(nominals) == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(len(us), len(nominals), nil)
	for i, u := range us {
		for j, v := range nominals {
			d.Set(i, j, Frobenius(u, v))
		}
	}
	return d
}

// NominalDistances returns the symmetric k × k distance matrix between nominals.
func NominalDistances(nominals []*mat.Dense) *mat.Dense {
	return DistanceMatrix(nominals, nominals)
}
