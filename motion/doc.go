/*
Package motion classifies which body regions of a tracked pose moved between
consecutive landmark frames.

Each landmark of a region is compared against its position in the previous
frame.  A point qualifies when its displacement exceeds the per point
threshold, and a region is moving when it has at least one qualifying point
and the average displacement of only its qualifying points exceeds the per
region threshold.  An optional hold duration keeps a region flagged as moving
for a grace period after the last frame it qualified in.

A Classifier is immutable once created and can be shared, whilst a State
belongs to a single stream and must be updated in frame order.
*/
package motion
