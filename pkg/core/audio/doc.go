// Package audio wraps the ffmpeg tool family for the voice client: a
// play-once Clip sink for synthesized replies, a streaming PCM player for
// agent audio, and microphone capture for both live streaming and bounded
// one-shot recordings.
//
// Every external process is started with a context and killed on
// cancellation; temporary files are owned by the Clip that created them.
package audio
