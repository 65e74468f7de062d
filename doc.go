/*
go-posemotion reports which coarse body regions of a person moved between
consecutive video frames.

A pose estimator turns each frame into an ordered set of landmarks, the motion
package compares them against the previous frame region by region, and the
session package ties an estimator pool, a per stream motion state and result
subscribers together.  Rendering helpers draw the skeleton, moving region
outlines and a status panel onto frames using GoCV.

See the cmd subdirectory for a live camera server and an offline replay tool.
*/
package posemotion
