package accumulator

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-pathtracer/common"
)

// blend folds sample into the running mean held by converged, which currently averages n samples:
//
//	converged = converged*(n/(n+1)) + sample*(1/(n+1))
//
// Rows are split across the pool when one is provided. Both buffers must share a resolution.
func blend(pool worker.DynamicWorkerPool, converged, sample *common.ImageBuffer, n uint32) {
	inv := 1 / float32(n+1)
	keep := float32(n) * inv
	rowStride := converged.Width * 4

	common.ParallelFor(pool, converged.Height, func(start, end int) {
		dst := converged.Pix[start*rowStride : end*rowStride]
		src := sample.Pix[start*rowStride : end*rowStride]
		for i := range dst {
			dst[i] = dst[i]*keep + src[i]*inv
		}
	})
}
