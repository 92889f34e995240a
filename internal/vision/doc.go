// Package vision provides the face detection and garment compositing
// capabilities the try-on workflow depends on.
//
// SkinDetector and Compositor are pure Go and always available.
// CascadeDetector wraps an OpenCV Haar cascade and needs the gocv build tag;
// without it a stub is compiled that fails every call.
package vision
