// Package manifest provides types and utilities for loading and validating
// model-zoo manifests. A manifest describes one pretrained model: its
// downloadable files with expected sizes and sha256 digests, optional
// postprocessing steps, and opaque conversion arguments.
//
// # Manifest Format
//
// Manifests are YAML documents (JSON is accepted by extension):
//
//	description: Face detector based on MobileNetV2
//	task_type: detection
//	files:
//	  - name: FP32/face-detection.xml
//	    size: 130216
//	    sha256: 1f1b73496ca4480680e288880a53d7b3cb577396791e2ec153483b123bbb979b
//	    source: https://download.example.org/face-detection/FP32/face-detection.xml
//	  - name: archive.tar.gz
//	    size: 2275280
//	    sha256: 9a4bcbdd61e2b0b11b816015b3a21fb82f5612b579f60a9e76a7159a9bd659ff
//	    source: https://download.example.org/face-detection/archive.tar.gz
//	postprocessing:
//	  - $type: unpack_archive
//	    format: gztar
//	    file: archive.tar.gz
//	framework: dldt
//	license: https://raw.githubusercontent.com/example/LICENSE
//
// # Validation
//
// Load rejects manifests that are structurally valid YAML but violate the
// schema: missing framework or task_type, an empty files list, negative
// sizes, digests that are not 64 hex characters, duplicate or unsafe file
// names, and postprocessing steps that reference undeclared files or carry
// an unknown $type. Unknown framework and task_type values pass through as
// opaque strings.
package manifest
