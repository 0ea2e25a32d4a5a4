package s1_exposure

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// LeastSquares returns the minimum-norm least-squares solution of x·b ≈ y
// Singular values at or below eps·max(rows, cols)·s_max are treated as zero,
// so rank-deficient designs still produce coefficients. A design of rank 0
// (all zeros) yields a zero vector.
func LeastSquares(x *mat.Dense, y []float64) []float64 {
	rows, cols := x.Dims()
	coef := make([]float64, cols)
	if rows == 0 || cols == 0 {
		return coef
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		for i := range coef {
			coef[i] = math.NaN()
		}
		return coef
	}

	rcond := epsilon * float64(max(rows, cols))
	rank := svd.Rank(rcond)
	if rank == 0 {
		return coef
	}

	dst := mat.NewVecDense(cols, nil)
	svd.SolveVecTo(dst, mat.NewVecDense(rows, append([]float64(nil), y...)), rank)
	for i := range coef {
		coef[i] = dst.AtVec(i)
	}
	return coef
}

// epsilon is the float64 machine epsilon (numpy finfo(float64).eps)
const epsilon = 2.220446049250313e-16
