// Package imaging holds the image plumbing shared by the generator, the
// corpus tools and the MCP server.
//
// # Loading
//
// ImageCache keeps a bounded set of decoded images keyed by path, applying
// EXIF orientation on decode. LoadImageInfo reads only the file header and
// reports the format detected from the contents, not the extension.
//
// # Encoding and Degradation
//
// SaveJPEG writes the final samples. RecompressJPEG and Resample implement
// the lossy and resolution-loss degradations; RecompressJPEG always removes
// its intermediate temp file, including when encoding fails.
//
// # Forensic Cues
//
// ExtractFeatures measures edge consistency, text contrast, layout against
// common certificate paper ratios, 8x8 block boundary jumps and the spread of
// local variance across the page. CheckBorder compares the drawn border with
// its expected color using CIEDE2000 distance.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left. Regions are
// image.Rectangle values: Min is inclusive and Max exclusive.
package imaging
