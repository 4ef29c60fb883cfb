// Package matrix builds the full user-user Pearson correlation matrix and
// streams it as text.
//
// The output starts with two header lines, the user count and the build
// parameters, followed by one line per user holding N comma-separated
// tokens in the format of package codec:
//
//	3
//	precomputedMeans=false,minCommonRatedMovies=1
//	NaN,.5000,-1.0000
//	.5000,NaN,NaN
//	-1.0000,NaN,NaN
//
// Only the upper triangle is computed. The lower half of each row comes
// from values deferred while earlier rows were written, held in a row store
// under a shared element budget and spilled to disk when the budget runs
// out.
package matrix
