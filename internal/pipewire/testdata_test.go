package pipewire

// sampleListing mimics "pw-cli list-objects Node" with a driver, a sink,
// two playback streams and a capture stream.
const sampleListing = `	id 28, type PipeWire:Interface:Node/3
 		object.serial = "28"
 		factory.id = "10"
 		priority.driver = "20000"
 		node.name = "Dummy-Driver"
	id 45, type PipeWire:Interface:Node/3
 		object.serial = "45"
 		object.path = "alsa:pcm:1:front:1:playback"
 		factory.id = "18"
 		client.id = "35"
 		device.id = "42"
 		priority.session = "1009"
 		priority.driver = "1009"
 		node.description = "Built-in Audio Analog Stereo"
 		node.name = "alsa_output.pci-0000_00_1f.3.analog-stereo"
 		node.nick = "ALC257 Analog"
 		media.class = "Audio/Sink"
	id 77, type PipeWire:Interface:Node/3
 		object.serial = "1204"
 		factory.id = "8"
 		client.id = "76"
 		application.name = "Firefox"
 		node.name = "Firefox"
 		media.class = "Stream/Output/Audio"
	id 91, type PipeWire:Interface:Node/3
 		object.serial = "1311"
 		factory.id = "8"
 		client.id = "90"
 		application.name = "mpv"
 		node.name = "mpv"
 		media.class = "Stream/Output/Audio"
	id 95, type PipeWire:Interface:Node/3
 		object.serial = "1320"
 		client.id = "94"
 		application.name = "OBS"
 		node.name = "OBS Mic"
 		media.class = "Stream/Input/Audio"
`
